// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package account implements registration, login and the email lifecycle of
// customer accounts.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vinovest/sqlx"

	"github.com/quistova/shopfront/internal/config"
	"github.com/quistova/shopfront/internal/mailer"
	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/repository"
	"github.com/quistova/shopfront/internal/security/password"
	sectoken "github.com/quistova/shopfront/internal/security/token"
	"github.com/quistova/shopfront/internal/token"
	"github.com/quistova/shopfront/internal/twofactor"
)

var (
	// ErrEmailTaken is returned when the address already belongs to an account.
	ErrEmailTaken = errors.New("email address already registered")
	// ErrRegistrationClosed is returned while registration is disabled.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrInvalidLogin is the single error for every failed password step, so
	// the response cannot distinguish unknown address from wrong password.
	ErrInvalidLogin = errors.New("invalid email or password")
	// ErrSecondFactorRequired signals that the password step succeeded but a
	// TOTP code must follow before a session is created.
	ErrSecondFactorRequired = errors.New("second factor required")
)

// Service owns the account lifecycle outside the security flows.
type Service struct {
	repo       *repository.Repository
	tokens     *token.Service
	challenges *twofactor.ChallengeStore
	mail       mailer.Dispatcher
	policy     *password.Validator
	cfg        *config.Config
	now        func() time.Time
}

// NewService wires the account service. mail may be nil in tests.
func NewService(
	repo *repository.Repository,
	tokens *token.Service,
	challenges *twofactor.ChallengeStore,
	mail mailer.Dispatcher,
	cfg *config.Config,
) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		challenges: challenges,
		mail:       mail,
		policy:     password.DefaultValidator(),
		cfg:        cfg,
		now:        time.Now,
	}
}

// Register creates an unverified account and mails the verification link.
// The first account ever registered becomes the admin.
func (s *Service) Register(ctx context.Context, email, plaintext string) (*models.Account, error) {
	if !s.cfg.Auth.RegistrationOpen {
		return nil, ErrRegistrationClosed
	}

	email = models.NormalizeEmail(email)
	if err := s.policy.Validate(plaintext, email); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetAccountByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RoleCustomer
	if count, err := s.repo.CountAccounts(ctx); err == nil && count == 0 {
		role = models.RoleAdmin
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	raw, err := s.tokens.Issue(ctx, models.PurposeEmailVerification, account.ID, s.cfg.Auth.VerifyTokenTTL)
	if err != nil {
		return nil, err
	}
	s.sendMail(ctx, account.Email, mailer.TemplateVerification, map[string]any{
		"Link": mailer.VerificationLink(s.cfg.Server.BaseURL, raw),
	})

	slog.Info("account_registered", "account_id", account.ID, "role", role)
	return account, nil
}

// LoginResult is the outcome of the password step.
type LoginResult struct {
	Account *models.Account
	// ChallengeID is set instead of Account when a second factor is
	// required; the client completes login via CompleteChallenge.
	ChallengeID string
}

// Login runs the password step. Unknown addresses burn a dummy bcrypt
// verification so the timing does not reveal account existence.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*LoginResult, error) {
	account, err := s.repo.GetAccountByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			password.VerifyDummy(plaintext)
			return nil, ErrInvalidLogin
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if !password.Verify(account.PasswordHash, plaintext) {
		slog.Warn("login_denied", "account_id", account.ID)
		return nil, ErrInvalidLogin
	}

	if account.TwoFactorEnabled {
		id := s.challenges.Create(account.ID)
		slog.Info("login_second_factor_required", "account_id", account.ID)
		return &LoginResult{ChallengeID: id}, ErrSecondFactorRequired
	}

	slog.Info("login_succeeded", "account_id", account.ID)
	return &LoginResult{Account: account}, nil
}

// CompleteChallenge runs the code step of a two-factor login. A wrong code
// keeps the challenge alive for another attempt; expiry restarts the login.
func (s *Service) CompleteChallenge(ctx context.Context, challengeID, code string, verify func(context.Context, *models.Account, string) error) (*models.Account, error) {
	accountID, err := s.challenges.Peek(challengeID)
	if err != nil {
		return nil, ErrInvalidLogin
	}

	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, ErrInvalidLogin
	}

	if err := verify(ctx, account, code); err != nil {
		slog.Warn("login_code_denied", "account_id", accountID)
		return nil, twofactor.ErrInvalidCode
	}

	if _, err := s.challenges.Consume(challengeID); err != nil {
		// Consumed between Peek and here by a parallel request.
		return nil, ErrInvalidLogin
	}

	slog.Info("login_succeeded", "account_id", accountID, "second_factor", true)
	return account, nil
}

// VerifyEmail consumes a verification token and marks the account verified
// in the same transaction.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) (int64, error) {
	return s.tokens.ValidateAndConsume(ctx, rawToken, models.PurposeEmailVerification,
		func(ctx context.Context, tx *sqlx.Tx, accountID int64) error {
			return s.repo.MarkAccountVerifiedTx(ctx, tx, accountID)
		})
}

// RequestEmailChange records the pending address and mails a confirmation
// link to the NEW address. The old address stays authoritative until the
// link is used.
func (s *Service) RequestEmailChange(ctx context.Context, accountID int64, newEmail string) error {
	newEmail = models.NormalizeEmail(newEmail)

	if _, err := s.repo.GetAccountByEmail(ctx, newEmail); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	raw, err := s.tokens.Issue(ctx, models.PurposeEmailChange, accountID, s.cfg.Auth.VerifyTokenTTL)
	if err != nil {
		return err
	}

	change := &models.PendingEmailChange{
		AccountID: accountID,
		NewEmail:  newEmail,
		TokenHash: sectoken.Digest(raw),
		ExpiresAt: s.now().Add(s.cfg.Auth.VerifyTokenTTL),
	}
	if err := s.repo.UpsertPendingEmailChange(ctx, change); err != nil {
		return fmt.Errorf("failed to store pending change: %w", err)
	}
	s.sendMail(ctx, newEmail, mailer.TemplateEmailChange, map[string]any{
		"Link": mailer.EmailChangeLink(s.cfg.Server.BaseURL, raw),
	})

	slog.Info("email_change_requested", "account_id", accountID)
	return nil
}

// ConfirmEmailChange consumes the token and switches the address. Token
// consumption, address update and pending-row cleanup share one transaction.
func (s *Service) ConfirmEmailChange(ctx context.Context, rawToken string) (int64, error) {
	return s.tokens.ValidateAndConsume(ctx, rawToken, models.PurposeEmailChange,
		func(ctx context.Context, tx *sqlx.Tx, accountID int64) error {
			change, err := s.repo.GetPendingEmailChangeTx(ctx, tx, accountID)
			if err != nil {
				return fmt.Errorf("no pending email change: %w", err)
			}
			if err := s.repo.UpdateAccountEmailTx(ctx, tx, accountID, change.NewEmail); err != nil {
				return err
			}
			return s.repo.DeletePendingEmailChangeTx(ctx, tx, accountID)
		})
}

func (s *Service) sendMail(ctx context.Context, to, template string, vars map[string]any) {
	if s.mail == nil {
		return
	}
	if err := s.mail.SendTemplate(ctx, template, to, vars); err != nil {
		slog.Error("account_email_failed", "template", template, "error", err)
	}
}
