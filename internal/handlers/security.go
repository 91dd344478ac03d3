// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/quistova/shopfront/internal/auth"
	"github.com/quistova/shopfront/internal/realtime"
	"github.com/quistova/shopfront/internal/services/security"
	"github.com/quistova/shopfront/internal/twofactor"
)

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// ChangePassword changes the password of the authenticated account. Success
// revokes every session, including the caller's; the response tells the
// client to drop its credentials.
func (h *Handlers) ChangePassword(c echo.Context) error {
	acct := auth.GetAccount(c.Request().Context())

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.NewPassword != req.ConfirmNewPassword {
		return message(c, http.StatusBadRequest, "password_mismatch")
	}

	_, err := h.security.ChangePassword(c.Request().Context(), acct.ID, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, security.ErrInvalidCredential):
		return message(c, http.StatusUnauthorized, "password_change_invalid")
	case err != nil:
		if handled, resp := policyErrors(c, err); handled {
			return resp
		}
		slog.Error("password_change_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "password change failed")
	}

	h.metrics.ForcedLogouts.WithLabelValues(realtime.ReasonPasswordChanged).Inc()
	h.clearCookies(c)
	return messageForceLogout(c, http.StatusOK, "password_changed")
}

// ResetRequestBody is the request body for requesting a password reset.
type ResetRequestBody struct {
	Email string `json:"email"`
}

// RequestPasswordReset mails a reset link. The response is identical whether
// the address exists or not.
func (h *Handlers) RequestPasswordReset(c echo.Context) error {
	var req ResetRequestBody
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	if err := h.security.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		slog.Error("password_reset_request_failed", "error", err)
		// Still answer 200; the failure is ours, not the caller's concern.
	}

	return message(c, http.StatusOK, "password_reset_requested")
}

// ResetPasswordRequest is the request body for completing a reset.
type ResetPasswordRequest struct {
	Token              string `json:"token"`
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// ResetPassword consumes a reset token and sets the new password. Every
// session of the account is revoked.
func (h *Handlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	if req.NewPassword != req.ConfirmNewPassword {
		return message(c, http.StatusBadRequest, "password_mismatch")
	}

	_, err := h.security.ResetPassword(c.Request().Context(), req.Token, req.NewPassword)
	switch {
	case isTokenRejection(err):
		return message(c, http.StatusBadRequest, "token_invalid")
	case err != nil:
		if handled, resp := policyErrors(c, err); handled {
			return resp
		}
		slog.Error("password_reset_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "password reset failed")
	}

	h.metrics.ForcedLogouts.WithLabelValues(realtime.ReasonPasswordChanged).Inc()
	return message(c, http.StatusOK, "password_reset_done")
}

// EnableTwoFactor turns on the second factor and returns the enrollment
// secret and otpauth URL, exactly once.
func (h *Handlers) EnableTwoFactor(c echo.Context) error {
	acct := auth.GetAccount(c.Request().Context())

	enrollment, err := h.security.EnableTwoFactor(c.Request().Context(), acct.ID)
	switch {
	case errors.Is(err, twofactor.ErrAlreadyEnabled):
		return echo.NewHTTPError(http.StatusConflict, "two-factor already enabled")
	case err != nil:
		slog.Error("two_factor_enable_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "enable failed")
	}

	return c.JSON(http.StatusOK, enrollment)
}

// DisableTwoFactorRequest is the request body for disabling the second
// factor.
type DisableTwoFactorRequest struct {
	Password string `json:"password"`
}

// DisableTwoFactor turns the second factor off after re-confirming the
// password. Success revokes every session of the account.
func (h *Handlers) DisableTwoFactor(c echo.Context) error {
	acct := auth.GetAccount(c.Request().Context())

	var req DisableTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	_, err := h.security.DisableTwoFactor(c.Request().Context(), acct.ID, req.Password)
	switch {
	case errors.Is(err, security.ErrInvalidCredential):
		return message(c, http.StatusUnauthorized, "password_change_invalid")
	case errors.Is(err, twofactor.ErrNotEnabled):
		return echo.NewHTTPError(http.StatusConflict, "two-factor not enabled")
	case err != nil:
		slog.Error("two_factor_disable_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "disable failed")
	}

	h.metrics.ForcedLogouts.WithLabelValues(realtime.ReasonTwoFactorDisabled).Inc()
	h.clearCookies(c)
	return messageForceLogout(c, http.StatusOK, "two_factor_disabled")
}

// ListSessions returns the sessions of the authenticated account for the
// device overview.
func (h *Handlers) ListSessions(c echo.Context) error {
	acct := auth.GetAccount(c.Request().Context())

	sessions, err := h.sessions.List(c.Request().Context(), acct.ID)
	if err != nil {
		slog.Error("session_list_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "session list failed")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"sessions": sessions,
		"current":  auth.GetSessionID(c.Request().Context()),
	})
}

// RevokeSession deactivates one session of the authenticated account.
func (h *Handlers) RevokeSession(c echo.Context) error {
	acct := auth.GetAccount(c.Request().Context())
	sessionID := c.Param("id")

	sessions, err := h.sessions.List(c.Request().Context(), acct.ID)
	if err != nil {
		slog.Error("session_list_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "revoke failed")
	}
	owned := false
	for _, s := range sessions {
		if s.ID == sessionID {
			owned = true
			break
		}
	}
	if !owned {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	if err := h.sessions.Revoke(c.Request().Context(), sessionID); err != nil {
		slog.Error("session_revoke_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "revoke failed")
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "revoked"})
}

// AdminRevokeSessions bulk-revokes every session of a target account and
// pushes the admin forced logout. Admin only.
func (h *Handlers) AdminRevokeSessions(c echo.Context) error {
	accountID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account id")
	}

	result, err := h.security.RevokeAccountSessions(c.Request().Context(), accountID)
	if err != nil {
		slog.Error("admin_revoke_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "revoke failed")
	}

	h.metrics.ForcedLogouts.WithLabelValues(realtime.ReasonAdminRevocation).Inc()
	return c.JSON(http.StatusOK, map[string]any{
		"sessions_revoked": result.SessionsRevoked,
	})
}
