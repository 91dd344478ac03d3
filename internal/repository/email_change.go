// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/vinovest/sqlx"

	"github.com/quistova/shopfront/internal/models"
)

// UpsertPendingEmailChange stores the outstanding email-change request of an
// account. A new request replaces any previous one.
func (r *Repository) UpsertPendingEmailChange(ctx context.Context, change *models.PendingEmailChange) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pending_email_changes (account_id, new_email, token_hash, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (account_id) DO UPDATE SET
		   new_email = excluded.new_email,
		   token_hash = excluded.token_hash,
		   expires_at = excluded.expires_at,
		   created_at = CURRENT_TIMESTAMP`,
		change.AccountID, models.NormalizeEmail(change.NewEmail),
		change.TokenHash, change.ExpiresAt)
	return err
}

// GetPendingEmailChangeTx loads the pending change of an account inside tx.
func (r *Repository) GetPendingEmailChangeTx(ctx context.Context, tx *sqlx.Tx, accountID int64) (*models.PendingEmailChange, error) {
	var change models.PendingEmailChange
	err := tx.GetContext(ctx, &change,
		`SELECT * FROM pending_email_changes WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &change, nil
}

// DeletePendingEmailChangeTx removes the pending change inside tx.
func (r *Repository) DeletePendingEmailChangeTx(ctx context.Context, tx *sqlx.Tx, accountID int64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM pending_email_changes WHERE account_id = ?`, accountID)
	return err
}

// DeletePendingEmailChange removes the pending change of an account.
func (r *Repository) DeletePendingEmailChange(ctx context.Context, accountID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_email_changes WHERE account_id = ?`, accountID)
	return err
}
