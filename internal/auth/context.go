// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"github.com/quistova/shopfront/internal/ctxkeys"
	"github.com/quistova/shopfront/internal/models"
)

// SetAccount stores the authenticated account in the context.
func SetAccount(ctx context.Context, account *models.Account) context.Context {
	return context.WithValue(ctx, ctxkeys.Account{}, account)
}

// GetAccount returns the authenticated account from the context, or nil.
func GetAccount(ctx context.Context) *models.Account {
	if account, ok := ctx.Value(ctxkeys.Account{}).(*models.Account); ok {
		return account
	}
	return nil
}

// SetSessionID stores the refresh-session id backing the request.
func SetSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxkeys.SessionID{}, sessionID)
}

// GetSessionID returns the refresh-session id backing the request, or "".
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxkeys.SessionID{}).(string); ok {
		return id
	}
	return ""
}

// IsAuthenticated returns true if the context has an authenticated account.
func IsAuthenticated(ctx context.Context) bool {
	return GetAccount(ctx) != nil
}
