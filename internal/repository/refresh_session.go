// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/quistova/shopfront/internal/models"
)

// CreateRefreshSession inserts a new session row.
func (r *Repository) CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_sessions (id, account_id, secret_hash, is_active, device_metadata, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.AccountID, session.SecretHash,
		session.IsActive, session.DeviceMetadata, session.ExpiresAt)
	return err
}

// GetRefreshSession retrieves a session by its ID.
func (r *Repository) GetRefreshSession(ctx context.Context, id string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	err := r.db.GetContext(ctx, &session,
		`SELECT * FROM refresh_sessions WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &session, nil
}

// ListAccountSessions returns all sessions of an account, newest first.
func (r *Repository) ListAccountSessions(ctx context.Context, accountID int64) ([]models.RefreshSession, error) {
	var sessions []models.RefreshSession
	err := r.db.SelectContext(ctx, &sessions,
		`SELECT * FROM refresh_sessions WHERE account_id = ? ORDER BY created_at DESC`,
		accountID)
	return sessions, err
}

// RevokeSession deactivates a single session.
func (r *Repository) RevokeSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET is_active = 0 WHERE id = ?`, id)
	return err
}

// RevokeAccountSessions deactivates every active session of an account in one
// statement and returns how many rows flipped. Sessions created while the
// statement runs serialize against it through the immediate write lock.
func (r *Repository) RevokeAccountSessions(ctx context.Context, accountID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET is_active = 0 WHERE account_id = ? AND is_active = 1`,
		accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TouchRefreshSession records a successful refresh exchange.
func (r *Repository) TouchRefreshSession(ctx context.Context, id string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET last_used_at = ? WHERE id = ?`, now, id)
	return err
}

// CountActiveSessions returns the number of active sessions of an account.
func (r *Repository) CountActiveSessions(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM refresh_sessions WHERE account_id = ? AND is_active = 1`,
		accountID)
	return count, err
}
