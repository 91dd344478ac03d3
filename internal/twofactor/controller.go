// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package twofactor drives the second-factor state of an account:
// Disabled -> Enabled -> Disabled, with disabling gated by password
// re-confirmation.
package twofactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/repository"
	"github.com/quistova/shopfront/internal/security/password"
	"github.com/quistova/shopfront/internal/security/totp"
)

var (
	// ErrAlreadyEnabled is returned when enabling an enabled account.
	ErrAlreadyEnabled = errors.New("two-factor authentication already enabled")
	// ErrNotEnabled is returned when disabling a disabled account.
	ErrNotEnabled = errors.New("two-factor authentication not enabled")
	// ErrInvalidCredential is returned when the password gate fails. State
	// is left untouched.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrInvalidCode is returned for a wrong or replayed TOTP code.
	ErrInvalidCode = errors.New("invalid authentication code")
)

// Controller owns the two-factor transitions of an account.
type Controller struct {
	repo   *repository.Repository
	issuer string
	now    func() time.Time
}

// NewController creates a controller. issuer is the name shown in
// authenticator apps.
func NewController(repo *repository.Repository, issuer string) *Controller {
	return &Controller{
		repo:   repo,
		issuer: issuer,
		now:    time.Now,
	}
}

// Enrollment is handed to the client exactly once at enable time.
type Enrollment struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

// Enable transitions Disabled -> Enabled. Activation is immediate; every
// subsequent login requires the second factor.
func (c *Controller) Enable(ctx context.Context, accountID int64) (*Enrollment, error) {
	account, err := c.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account.TwoFactorEnabled {
		return nil, ErrAlreadyEnabled
	}

	_, secretB32, err := totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}

	if err := c.repo.SetTwoFactor(ctx, accountID, true, &secretB32); err != nil {
		return nil, fmt.Errorf("failed to enable two-factor: %w", err)
	}

	slog.Info("two_factor_enabled", "account_id", accountID)
	return &Enrollment{
		Secret:     secretB32,
		OTPAuthURL: totp.OTPAuthURL(c.issuer, account.Email, secretB32),
	}, nil
}

// Disable transitions Enabled -> Disabled after verifying the current
// password. On a failed gate nothing is mutated. The caller (the security
// orchestrator) is responsible for the forced-logout sequence that must
// follow this security downgrade.
func (c *Controller) Disable(ctx context.Context, accountID int64, currentPassword string) error {
	account, err := c.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if !account.TwoFactorEnabled {
		return ErrNotEnabled
	}

	if !password.Verify(account.PasswordHash, currentPassword) {
		slog.Warn("two_factor_disable_denied", "account_id", accountID)
		return ErrInvalidCredential
	}

	if err := c.repo.SetTwoFactor(ctx, accountID, false, nil); err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}

	slog.Info("two_factor_disabled", "account_id", accountID)
	return nil
}

// VerifyCode checks a TOTP code during the second login step. The matched
// counter is persisted so the same code cannot be accepted twice within the
// window.
func (c *Controller) VerifyCode(ctx context.Context, account *models.Account, code string) error {
	if !account.TwoFactorEnabled || account.TOTPSecret == nil {
		return ErrNotEnabled
	}

	secret, err := totp.DecodeSecret(*account.TOTPSecret)
	if err != nil {
		return ErrInvalidCode
	}

	ok, counter := totp.Verify(secret, code, c.now(), 1, &account.TOTPLastCounter)
	if !ok {
		return ErrInvalidCode
	}

	if err := c.repo.SetTOTPLastCounter(ctx, account.ID, counter); err != nil {
		return fmt.Errorf("failed to record code counter: %w", err)
	}
	account.TOTPLastCounter = counter
	return nil
}
