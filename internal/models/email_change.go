// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package models

import "time"

// PendingEmailChange is the single outstanding email-change request of an
// account. A new request supersedes the previous row.
type PendingEmailChange struct { //nolint:govet // fieldalignment: readability over optimization
	AccountID int64     `db:"account_id" json:"account_id"`
	NewEmail  string    `db:"new_email" json:"new_email"`
	TokenHash string    `db:"token_hash" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
