// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package session tracks one refresh session per authenticated device and
// gates the minting of access credentials.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quistova/shopfront/internal/config"
	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/repository"
	sectoken "github.com/quistova/shopfront/internal/security/token"
)

var (
	// ErrSessionNotFound is returned when no session row matches.
	ErrSessionNotFound = errors.New("refresh session not found")
	// ErrSessionInactive is returned for revoked or expired sessions. An
	// inactive session never yields a new access credential, even when the
	// refresh secret itself still verifies.
	ErrSessionInactive = errors.New("refresh session inactive")
	// ErrSecretMismatch is returned when the refresh secret does not verify.
	ErrSecretMismatch = errors.New("refresh secret mismatch")
)

// Registry is the session registry.
type Registry struct {
	repo    *repository.Repository
	cfg     *config.AuthConfig
	now     func() time.Time
	revoked func(count int64)
}

// Option configures the registry.
type Option func(*Registry)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithRevocationObserver registers a callback for bulk revocations.
func WithRevocationObserver(fn func(count int64)) Option {
	return func(r *Registry) { r.revoked = fn }
}

// NewRegistry creates a session registry.
func NewRegistry(repo *repository.Repository, cfg *config.AuthConfig, opts ...Option) *Registry {
	r := &Registry{
		repo:    repo,
		cfg:     cfg,
		now:     time.Now,
		revoked: func(int64) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a new session at successful authentication and returns the
// row plus the raw refresh secret. The secret leaves the server exactly once,
// inside the refresh cookie; only its digest is stored.
func (r *Registry) Create(ctx context.Context, accountID int64, deviceMetadata string) (*models.RefreshSession, string, error) {
	secret, err := sectoken.NewOpaque()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate refresh secret: %w", err)
	}

	session := &models.RefreshSession{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		SecretHash:     sectoken.Digest(secret),
		IsActive:       true,
		DeviceMetadata: deviceMetadata,
		ExpiresAt:      r.now().Add(r.cfg.RefreshTTL),
		CreatedAt:      r.now(),
	}
	if err := r.repo.CreateRefreshSession(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to store refresh session: %w", err)
	}

	slog.Info("session_created", "session_id", session.ID, "account_id", accountID)
	return session, secret, nil
}

// IsActive reports whether the session may still mint access credentials.
func (r *Registry) IsActive(ctx context.Context, sessionID string) (bool, error) {
	session, err := r.repo.GetRefreshSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return session.Usable(r.now()), nil
}

// Resolve verifies a refresh credential and returns the usable session. The
// registry row, not the cryptographic validity of the secret, decides.
func (r *Registry) Resolve(ctx context.Context, sessionID, secret string) (*models.RefreshSession, error) {
	session, err := r.repo.GetRefreshSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if !sectoken.DigestEqual(session.SecretHash, sectoken.Digest(secret)) {
		return nil, ErrSecretMismatch
	}
	if !session.Usable(r.now()) {
		return nil, ErrSessionInactive
	}

	return session, nil
}

// Touch records a successful refresh exchange on the session.
func (r *Registry) Touch(ctx context.Context, sessionID string) error {
	return r.repo.TouchRefreshSession(ctx, sessionID, r.now())
}

// Revoke deactivates a single session, e.g. at logout. Idempotent.
func (r *Registry) Revoke(ctx context.Context, sessionID string) error {
	return r.repo.RevokeSession(ctx, sessionID)
}

// RevokeAll deactivates every session of an account in one bulk statement and
// returns the count. Sessions existing before the call observe inactive
// afterwards; there is no partial-revocation window.
func (r *Registry) RevokeAll(ctx context.Context, accountID int64) (int64, error) {
	count, err := r.repo.RevokeAccountSessions(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}

	r.revoked(count)
	slog.Info("sessions_revoked", "account_id", accountID, "count", count)
	return count, nil
}

// List returns all sessions of an account for the device overview.
func (r *Registry) List(ctx context.Context, accountID int64) ([]models.RefreshSession, error) {
	return r.repo.ListAccountSessions(ctx, accountID)
}
