// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/quistova/shopfront/internal/models"
)

// GetAccountByID retrieves an account by its ID.
func (r *Repository) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT * FROM accounts WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByEmail retrieves an account by its normalized email address.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`SELECT * FROM accounts WHERE email = ? AND deleted_at IS NULL`,
		models.NormalizeEmail(email))
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// CreateAccount inserts a new account and fills in its ID.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	account.Email = models.NormalizeEmail(account.Email)
	if account.Role == "" {
		account.Role = models.RoleCustomer
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (email, password_hash, is_verified, two_factor_enabled, totp_secret, role, recovery_email)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.Email, account.PasswordHash, account.IsVerified,
		account.TwoFactorEnabled, account.TOTPSecret, account.Role, account.RecoveryEmail)
	if err != nil {
		return err
	}
	account.ID, err = res.LastInsertId()
	return err
}

// UpdateAccountPassword replaces the stored password hash.
func (r *Repository) UpdateAccountPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id)
	return err
}

// updateAccountPasswordTx is the transactional variant used by token consumption.
func updateAccountPasswordTx(ctx context.Context, tx *sqlx.Tx, id int64, passwordHash string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id)
	return err
}

// UpdateAccountPasswordTx replaces the stored password hash inside tx.
func (r *Repository) UpdateAccountPasswordTx(ctx context.Context, tx *sqlx.Tx, id int64, passwordHash string) error {
	return updateAccountPasswordTx(ctx, tx, id, passwordHash)
}

// MarkAccountVerifiedTx flips is_verified inside tx.
func (r *Repository) MarkAccountVerifiedTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE accounts SET is_verified = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

// UpdateAccountEmailTx rewrites the email address inside tx.
func (r *Repository) UpdateAccountEmailTx(ctx context.Context, tx *sqlx.Tx, id int64, email string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE accounts SET email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.NormalizeEmail(email), id)
	return err
}

// SetTwoFactor updates the two-factor flag and secret material together and
// resets the code replay counter.
func (r *Repository) SetTwoFactor(ctx context.Context, id int64, enabled bool, totpSecret *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET two_factor_enabled = ?, totp_secret = ?, totp_last_counter = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		enabled, totpSecret, id)
	return err
}

// SetTOTPLastCounter records the last accepted TOTP counter so a code cannot
// be accepted twice.
func (r *Repository) SetTOTPLastCounter(ctx context.Context, id int64, counter int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET totp_last_counter = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		counter, id)
	return err
}

// SetRecoveryEmail updates the optional recovery address.
func (r *Repository) SetRecoveryEmail(ctx context.Context, id int64, recoveryEmail *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET recovery_email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		recoveryEmail, id)
	return err
}

// CountAccounts returns the total number of live accounts.
func (r *Repository) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM accounts WHERE deleted_at IS NULL`)
	return count, err
}

// SoftDeleteAccount marks an account deleted without removing the row.
func (r *Repository) SoftDeleteAccount(ctx context.Context, id int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET deleted_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, now, id)
	return err
}
