// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package models

import (
	"strings"
	"time"
)

// Account is a customer account. Email is unique by its normalized form.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	ID               int64      `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	IsVerified       bool       `db:"is_verified" json:"is_verified"`
	TwoFactorEnabled bool       `db:"two_factor_enabled" json:"two_factor_enabled"`
	TOTPSecret       *string    `db:"totp_secret" json:"-"`
	TOTPLastCounter  int64      `db:"totp_last_counter" json:"-"`
	Role             string     `db:"role" json:"role"`
	RecoveryEmail    *string    `db:"recovery_email" json:"recovery_email,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"-"`
}

// IsAdmin reports whether the account carries the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Account roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// NormalizeEmail lowercases and trims an address for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
