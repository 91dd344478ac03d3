// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"github.com/quistova/shopfront/internal/config"
	"github.com/quistova/shopfront/internal/database"
	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/repository"
	"github.com/quistova/shopfront/internal/security/password"
)

// TestPassword satisfies the password policy and is used by all fixtures.
const TestPassword = "correct-horse-battery"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestAccount creates a verified account with TestPassword.
func NewTestAccount(t *testing.T, repo *repository.Repository, email string) *models.Account {
	t.Helper()
	ctx := context.Background()

	hash, err := password.Hash(TestPassword)
	require.NoError(t, err)

	account := &models.Account{
		Email:        models.NormalizeEmail(email),
		PasswordHash: hash,
		IsVerified:   true,
		Role:         models.RoleCustomer,
	}
	require.NoError(t, repo.CreateAccount(ctx, account))
	return account
}

// NewTestConfig returns a configuration suitable for tests: in-memory
// database, no SMTP, deterministic secrets.
func NewTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:    "localhost",
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: config.DatabaseConfig{DSN: ":memory:"},
		Auth: config.AuthConfig{
			RegistrationOpen: true,
			AccessTokenTTL:   15 * time.Minute,
			RefreshTTL:       720 * time.Hour,
			AccessSecret:     "0123456789abcdef0123456789abcdef",
			TOTPIssuer:       "Shopfront",
			ResetTokenTTL:    time.Hour,
			VerifyTokenTTL:   24 * time.Hour,
		},
	}
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
