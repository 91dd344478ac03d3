// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package token issues and consumes purpose-scoped, single-use, expiring
// opaque tokens.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/repository"
	sectoken "github.com/quistova/shopfront/internal/security/token"
)

var (
	// ErrTokenNotFound means no token row matches hash and purpose.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired means the token exists but its lifetime has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenAlreadyUsed means the token was already consumed once.
	ErrTokenAlreadyUsed = errors.New("token already used")
)

// ConsumeFunc runs the state change that depends on a token inside the same
// transaction that marks the token used. Both commit together or not at all.
type ConsumeFunc func(ctx context.Context, tx *sqlx.Tx, accountID int64) error

// Service is the token issuer and validator.
type Service struct {
	repo    *repository.Repository
	now     func() time.Time
	observe func(purpose models.TokenPurpose, outcome string)
}

// Option configures the service.
type Option func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithObserver registers a callback for issue/consume outcomes.
func WithObserver(observe func(purpose models.TokenPurpose, outcome string)) Option {
	return func(s *Service) { s.observe = observe }
}

// NewService creates a token service.
func NewService(repo *repository.Repository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		now:     time.Now,
		observe: func(models.TokenPurpose, string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a token of the given purpose for an account and returns the
// raw value exactly once; only its digest is persisted. Outstanding tokens of
// the same purpose are superseded: one valid link per purpose at a time.
func (s *Service) Issue(ctx context.Context, purpose models.TokenPurpose, accountID int64, ttl time.Duration) (string, error) {
	if !purpose.Valid() {
		return "", fmt.Errorf("invalid token purpose %q", purpose)
	}

	if err := s.repo.DeleteOutstandingTokens(ctx, accountID, purpose); err != nil {
		return "", fmt.Errorf("failed to supersede outstanding tokens: %w", err)
	}

	raw, err := sectoken.NewOpaque()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	row := &models.OneTimeToken{
		Purpose:   purpose,
		TokenHash: sectoken.Digest(raw),
		AccountID: accountID,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.repo.CreateOneTimeToken(ctx, row); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	s.observe(purpose, "issued")
	slog.Debug("token_issued", "purpose", purpose, "account_id", accountID, "expires_at", row.ExpiresAt)
	return raw, nil
}

// ValidateAndConsume looks the token up by digest and purpose, marks it used
// and runs fn in one transaction. Exactly one of two concurrent calls with
// the same raw token succeeds; the other observes ErrTokenAlreadyUsed.
// It returns the owning account id on success.
func (s *Service) ValidateAndConsume(ctx context.Context, raw string, purpose models.TokenPurpose, fn ConsumeFunc) (int64, error) {
	digest := sectoken.Digest(raw)
	now := s.now()

	var accountID int64
	err := s.repo.InTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.repo.GetOneTimeTokenTx(ctx, tx, digest, purpose)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTokenNotFound
			}
			return err
		}

		if row.UsedAt != nil {
			return ErrTokenAlreadyUsed
		}
		if !now.Before(row.ExpiresAt) {
			return ErrTokenExpired
		}

		marked, err := s.repo.MarkOneTimeTokenUsedTx(ctx, tx, row.ID, now)
		if err != nil {
			return err
		}
		if !marked {
			// A concurrent transaction won the race.
			return ErrTokenAlreadyUsed
		}

		accountID = row.AccountID
		if fn != nil {
			return fn(ctx, tx, row.AccountID)
		}
		return nil
	})
	if err != nil {
		s.observe(purpose, consumeOutcome(err))
		return 0, err
	}

	s.observe(purpose, "consumed")
	slog.Info("token_consumed", "purpose", purpose, "account_id", accountID)
	return accountID, nil
}

func consumeOutcome(err error) string {
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenAlreadyUsed):
		return "already_used"
	default:
		return "error"
	}
}

// PurgeExpired removes expired rows; run periodically by the server.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredTokens(ctx, s.now())
}
