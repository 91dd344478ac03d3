// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/quistova/shopfront/internal/models"
)

// CreateOneTimeToken inserts a new token row. Only the hash of the raw token
// is ever stored.
func (r *Repository) CreateOneTimeToken(ctx context.Context, token *models.OneTimeToken) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO one_time_tokens (purpose, token_hash, account_id, expires_at)
		 VALUES (?, ?, ?, ?)`,
		token.Purpose, token.TokenHash, token.AccountID, token.ExpiresAt)
	if err != nil {
		return err
	}
	token.ID, err = res.LastInsertId()
	return err
}

// GetOneTimeTokenTx looks a token up by hash and purpose inside tx.
func (r *Repository) GetOneTimeTokenTx(ctx context.Context, tx *sqlx.Tx, tokenHash string, purpose models.TokenPurpose) (*models.OneTimeToken, error) {
	var token models.OneTimeToken
	err := tx.GetContext(ctx, &token,
		`SELECT * FROM one_time_tokens WHERE token_hash = ? AND purpose = ?`,
		tokenHash, purpose)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// MarkOneTimeTokenUsedTx flips used_at inside tx. Returns false when the row
// was already consumed by a concurrent caller.
func (r *Repository) MarkOneTimeTokenUsedTx(ctx context.Context, tx *sqlx.Tx, id int64, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE one_time_tokens SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		now, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeleteOutstandingTokens removes unconsumed tokens of one purpose for an
// account. Issuing a new token supersedes the previous ones through this.
func (r *Repository) DeleteOutstandingTokens(ctx context.Context, accountID int64, purpose models.TokenPurpose) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM one_time_tokens WHERE account_id = ? AND purpose = ? AND used_at IS NULL`,
		accountID, purpose)
	return err
}

// CountOutstandingTokens returns how many unconsumed tokens of a purpose exist.
func (r *Repository) CountOutstandingTokens(ctx context.Context, accountID int64, purpose models.TokenPurpose) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM one_time_tokens WHERE account_id = ? AND purpose = ? AND used_at IS NULL`,
		accountID, purpose)
	return count, err
}

// DeleteExpiredTokens removes rows past their expiry. Run by the janitor.
func (r *Repository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM one_time_tokens WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
