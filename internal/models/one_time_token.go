// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package models

import "time"

// TokenPurpose scopes a one-time token to a single operation category.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeEmailChange       TokenPurpose = "email_change"
)

// Valid reports whether p is a known purpose tag.
func (p TokenPurpose) Valid() bool {
	switch p {
	case PurposeEmailVerification, PurposePasswordReset, PurposeEmailChange:
		return true
	}
	return false
}

// OneTimeToken stores the SHA256 hash of a purpose-scoped, single-use token.
// The raw value is handed to the owner exactly once and never persisted.
type OneTimeToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64        `db:"id" json:"id"`
	Purpose   TokenPurpose `db:"purpose" json:"purpose"`
	TokenHash string       `db:"token_hash" json:"-"`
	AccountID int64        `db:"account_id" json:"account_id"`
	ExpiresAt time.Time    `db:"expires_at" json:"expires_at"`
	UsedAt    *time.Time   `db:"used_at" json:"used_at,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// Consumable reports whether the token may still be consumed at now.
func (t *OneTimeToken) Consumable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
