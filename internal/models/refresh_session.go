// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package models

import "time"

// RefreshSession is one authenticated device/login. Sessions are revoked
// logically by flipping IsActive; rows are kept for audit.
type RefreshSession struct { //nolint:govet // fieldalignment: readability over optimization
	ID             string     `db:"id" json:"id"`
	AccountID      int64      `db:"account_id" json:"account_id"`
	SecretHash     string     `db:"secret_hash" json:"-"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	DeviceMetadata string     `db:"device_metadata" json:"device_metadata"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	LastUsedAt     *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
}

// Usable reports whether the session may still mint access credentials.
func (s *RefreshSession) Usable(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
