// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package mailer delivers account security emails. Delivery is best-effort:
// failures are logged and never surface through the security flows.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/quistova/shopfront/internal/config"
	"github.com/quistova/shopfront/internal/i18n"
)

// Known template IDs.
const (
	TemplateVerification      = "email_verification"
	TemplatePasswordReset     = "email_password_reset"
	TemplatePasswordChanged   = "email_password_changed"
	TemplateEmailChange       = "email_change"
	TemplateTwoFactorDisabled = "email_two_factor_disabled"
)

// Dispatcher is the email-delivery contract consumed by the security flows.
type Dispatcher interface {
	SendTemplate(ctx context.Context, templateID, toAddress string, vars map[string]any) error
}

// SMTP sends templated mail through an SMTP relay using go-mail.
type SMTP struct {
	cfg *config.SMTPConfig
}

// NewSMTP creates a new SMTP dispatcher.
func NewSMTP(cfg *config.SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &SMTP{cfg: cfg}, nil
}

// SendTemplate renders the localized template and delivers it.
func (s *SMTP) SendTemplate(ctx context.Context, templateID, toAddress string, vars map[string]any) error {
	subject := i18n.T(ctx, templateID+"_subject")
	body := i18n.TData(ctx, templateID+"_body", vars)
	return s.send(toAddress, subject, body)
}

func (s *SMTP) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

// VerificationLink builds the link embedded in a verification email.
func VerificationLink(baseURL, rawToken string) string {
	return strings.TrimSuffix(baseURL, "/") + "/account/verify-email?token=" + rawToken
}

// ResetLink builds the link embedded in a password-reset email.
func ResetLink(baseURL, rawToken string) string {
	return strings.TrimSuffix(baseURL, "/") + "/account/reset-password?token=" + rawToken
}

// EmailChangeLink builds the link embedded in an email-change confirmation.
func EmailChangeLink(baseURL, rawToken string) string {
	return strings.TrimSuffix(baseURL, "/") + "/account/confirm-email-change?token=" + rawToken
}
