// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quistova/shopfront/internal/auth"
	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/services/account"
	"github.com/quistova/shopfront/internal/token"
)

// tokenRequest carries a raw one-time token.
type tokenRequest struct {
	Token string `json:"token"`
}

// VerifyEmail consumes an email-verification token. Not-found, expired and
// already-used all collapse into the same response so the endpoint cannot be
// used to probe token state.
func (h *Handlers) VerifyEmail(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	_, err := h.accounts.VerifyEmail(c.Request().Context(), req.Token)
	if err != nil {
		if isTokenRejection(err) {
			return message(c, http.StatusBadRequest, "verify_token_invalid")
		}
		slog.Error("verify_email_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "verification failed")
	}

	return message(c, http.StatusOK, "email_verified")
}

// EmailChangeRequest is the request body for changing the account address.
type EmailChangeRequest struct {
	NewEmail string `json:"new_email"`
}

// RequestEmailChange records the pending address and mails the confirmation
// link to it. The current address stays in effect until confirmed.
func (h *Handlers) RequestEmailChange(c echo.Context) error {
	acct := auth.GetAccount(c.Request().Context())

	var req EmailChangeRequest
	if err := c.Bind(&req); err != nil || req.NewEmail == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "new_email is required")
	}

	err := h.accounts.RequestEmailChange(c.Request().Context(), acct.ID, req.NewEmail)
	switch {
	case errors.Is(err, account.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	case err != nil:
		slog.Error("email_change_request_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "email change failed")
	}

	return message(c, http.StatusOK, "email_change_requested")
}

// ConfirmEmailChange consumes the confirmation token and switches the
// address.
func (h *Handlers) ConfirmEmailChange(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	_, err := h.accounts.ConfirmEmailChange(c.Request().Context(), req.Token)
	if err != nil {
		if isTokenRejection(err) {
			return message(c, http.StatusBadRequest, "token_invalid")
		}
		slog.Error("email_change_confirm_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "email change failed")
	}

	return message(c, http.StatusOK, "email_change_done")
}

// RecoveryEmailRequest is the request body for setting the recovery address.
type RecoveryEmailRequest struct {
	RecoveryEmail string `json:"recovery_email"`
}

// SetRecoveryEmail stores the optional recovery address that receives a copy
// of security notices. An empty value clears it.
func (h *Handlers) SetRecoveryEmail(c echo.Context) error {
	acct := auth.GetAccount(c.Request().Context())

	var req RecoveryEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var recovery *string
	if req.RecoveryEmail != "" {
		normalized := models.NormalizeEmail(req.RecoveryEmail)
		recovery = &normalized
	}

	if err := h.repo.SetRecoveryEmail(c.Request().Context(), acct.ID, recovery); err != nil {
		slog.Error("recovery_email_update_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "update failed")
	}

	return message(c, http.StatusOK, "recovery_email_updated")
}

// Me returns the authenticated account.
func (h *Handlers) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"account": auth.GetAccount(c.Request().Context()),
	})
}

// isTokenRejection reports whether err is one of the expected token
// rejections rather than an infrastructure failure.
func isTokenRejection(err error) bool {
	return errors.Is(err, token.ErrTokenNotFound) ||
		errors.Is(err, token.ErrTokenExpired) ||
		errors.Is(err, token.ErrTokenAlreadyUsed)
}
