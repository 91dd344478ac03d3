// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package ctxkeys defines typed context keys shared across packages.
package ctxkeys

// Account is the context key for the authenticated account.
type Account struct{}

// SessionID is the context key for the refresh session backing the request.
type SessionID struct{}
