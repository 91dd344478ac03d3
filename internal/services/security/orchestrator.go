// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package security composes the multi-step flows behind security-sensitive
// account changes: verify the credential, apply the authoritative mutation,
// revoke every session in bulk, then fan out the best-effort side effects
// (email, realtime push). The ordering is fixed; side effects never run
// before the mutation has committed and never fail the flow.
package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/quistova/shopfront/internal/config"
	"github.com/quistova/shopfront/internal/i18n"
	"github.com/quistova/shopfront/internal/mailer"
	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/realtime"
	"github.com/quistova/shopfront/internal/repository"
	"github.com/quistova/shopfront/internal/security/password"
	"github.com/quistova/shopfront/internal/session"
	"github.com/quistova/shopfront/internal/token"
	"github.com/quistova/shopfront/internal/twofactor"
)

var (
	// ErrAccountNotFound is returned when the acting account no longer exists.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredential is returned when the current-password gate fails.
	// Nothing has been mutated when this is returned.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Result reports the outcome of a security flow back to the transport layer.
type Result struct {
	// ForceLogout tells the handler to clear the caller's own credentials
	// too; its session was revoked together with all others.
	ForceLogout bool
	// SessionsRevoked is the bulk revocation count.
	SessionsRevoked int64
}

// Orchestrator drives password change, password reset and two-factor
// disable end to end.
type Orchestrator struct {
	repo      *repository.Repository
	sessions  *session.Registry
	tokens    *token.Service
	twoFactor *twofactor.Controller
	hub       *realtime.Hub
	mail      mailer.Dispatcher
	policy    *password.Validator
	cfg       *config.Config
	now       func() time.Time
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires the orchestrator. hub and mail may be nil in tests
// that only exercise the authoritative path.
func NewOrchestrator(
	repo *repository.Repository,
	sessions *session.Registry,
	tokens *token.Service,
	twoFactor *twofactor.Controller,
	hub *realtime.Hub,
	mail mailer.Dispatcher,
	cfg *config.Config,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		repo:      repo,
		sessions:  sessions,
		tokens:    tokens,
		twoFactor: twoFactor,
		hub:       hub,
		mail:      mail,
		policy:    password.DefaultValidator(),
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ChangePassword verifies the current password, persists the new hash,
// revokes every session of the account and pushes a forced logout. A wrong
// current password aborts before any mutation.
func (o *Orchestrator) ChangePassword(ctx context.Context, accountID int64, currentPassword, newPassword string) (*Result, error) {
	account, err := o.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if !password.Verify(account.PasswordHash, currentPassword) {
		slog.Warn("password_change_denied", "account_id", accountID)
		return nil, ErrInvalidCredential
	}

	if err := o.policy.Validate(newPassword, account.Email); err != nil {
		return nil, err
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := o.repo.UpdateAccountPassword(ctx, accountID, hash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	count, err := o.sessions.RevokeAll(ctx, accountID)
	if err != nil {
		return nil, err
	}

	o.notifySecurityEvent(ctx, account, realtime.ReasonPasswordChanged, mailer.TemplatePasswordChanged)

	slog.Info("password_changed", "account_id", accountID, "sessions_revoked", count)
	return &Result{ForceLogout: true, SessionsRevoked: count}, nil
}

// RequestPasswordReset issues a reset token and mails the link. It succeeds
// silently for unknown addresses so the endpoint never reveals whether an
// account exists.
func (o *Orchestrator) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := o.repo.GetAccountByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn the same time as the found path would.
			password.VerifyDummy("reset-request")
			slog.Info("password_reset_requested_unknown")
			return nil
		}
		return fmt.Errorf("failed to load account: %w", err)
	}

	raw, err := o.tokens.Issue(ctx, models.PurposePasswordReset, account.ID, o.cfg.Auth.ResetTokenTTL)
	if err != nil {
		return err
	}

	o.sendMail(ctx, account.Email, mailer.TemplatePasswordReset, map[string]any{
		"Link": mailer.ResetLink(o.cfg.Server.BaseURL, raw),
		"TTL":  o.cfg.Auth.ResetTokenTTL.String(),
	})
	return nil
}

// ResetPassword consumes a reset token and updates the password in the same
// transaction, then revokes every session and pushes a forced logout. An
// invalid, expired or spent token mutates nothing.
func (o *Orchestrator) ResetPassword(ctx context.Context, rawToken, newPassword string) (*Result, error) {
	if err := o.policy.Validate(newPassword); err != nil {
		return nil, err
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	accountID, err := o.tokens.ValidateAndConsume(ctx, rawToken, models.PurposePasswordReset,
		func(ctx context.Context, tx *sqlx.Tx, accountID int64) error {
			return o.repo.UpdateAccountPasswordTx(ctx, tx, accountID, hash)
		})
	if err != nil {
		return nil, err
	}

	count, err := o.sessions.RevokeAll(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account, err := o.repo.GetAccountByID(ctx, accountID); err == nil {
		o.notifySecurityEvent(ctx, account, realtime.ReasonPasswordChanged, mailer.TemplatePasswordChanged)
	}

	slog.Info("password_reset", "account_id", accountID, "sessions_revoked", count)
	return &Result{ForceLogout: true, SessionsRevoked: count}, nil
}

// EnableTwoFactor turns the second factor on and returns the enrollment.
// Enabling is a security upgrade; existing sessions stay valid.
func (o *Orchestrator) EnableTwoFactor(ctx context.Context, accountID int64) (*twofactor.Enrollment, error) {
	return o.twoFactor.Enable(ctx, accountID)
}

// DisableTwoFactor verifies the password, turns the second factor off,
// revokes every session and pushes a forced logout.
func (o *Orchestrator) DisableTwoFactor(ctx context.Context, accountID int64, currentPassword string) (*Result, error) {
	err := o.twoFactor.Disable(ctx, accountID, currentPassword)
	switch {
	case errors.Is(err, twofactor.ErrInvalidCredential):
		return nil, ErrInvalidCredential
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrAccountNotFound
	case err != nil:
		return nil, err
	}

	count, err := o.sessions.RevokeAll(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if account, err := o.repo.GetAccountByID(ctx, accountID); err == nil {
		o.notifySecurityEvent(ctx, account, realtime.ReasonTwoFactorDisabled, mailer.TemplateTwoFactorDisabled)
	}

	slog.Info("two_factor_disable_completed", "account_id", accountID, "sessions_revoked", count)
	return &Result{ForceLogout: true, SessionsRevoked: count}, nil
}

// RevokeAccountSessions is the admin path: bulk-revoke without a credential
// gate and push the admin_revocation reason.
func (o *Orchestrator) RevokeAccountSessions(ctx context.Context, accountID int64) (*Result, error) {
	count, err := o.sessions.RevokeAll(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if o.hub != nil {
		o.hub.NotifyAccount(accountID, realtime.ForceLogout{
			Reason:    realtime.ReasonAdminRevocation,
			Message:   i18n.T(ctx, "force_logout_"+realtime.ReasonAdminRevocation),
			Timestamp: o.now(),
		})
	}

	slog.Info("admin_sessions_revoked", "account_id", accountID, "count", count)
	return &Result{ForceLogout: false, SessionsRevoked: count}, nil
}

// notifySecurityEvent fans out the best-effort side effects after the
// authoritative mutation has committed: the notification email and the
// realtime forced-logout push. Neither can fail the flow.
func (o *Orchestrator) notifySecurityEvent(ctx context.Context, account *models.Account, reason, template string) {
	o.sendMail(ctx, account.Email, template, map[string]any{})
	if account.RecoveryEmail != nil && *account.RecoveryEmail != "" {
		o.sendMail(ctx, *account.RecoveryEmail, template, map[string]any{})
	}

	if o.hub != nil {
		o.hub.NotifyAccount(account.ID, realtime.ForceLogout{
			Reason:    reason,
			Message:   i18n.T(ctx, "force_logout_"+reason),
			Timestamp: o.now(),
		})
	}
}

func (o *Orchestrator) sendMail(ctx context.Context, to, template string, vars map[string]any) {
	if o.mail == nil {
		return
	}
	if err := o.mail.SendTemplate(ctx, template, to, vars); err != nil {
		slog.Error("security_email_failed", "template", template, "error", err)
	}
}
