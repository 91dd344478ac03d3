// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quistova/shopfront/internal/i18n"
	"github.com/quistova/shopfront/internal/models"
	"github.com/quistova/shopfront/internal/realtime"
	"github.com/quistova/shopfront/internal/services/account"
	"github.com/quistova/shopfront/internal/session"
	"github.com/quistova/shopfront/internal/twofactor"
)

// RegisterRequest is the request body for account creation.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and sends the verification email.
func (h *Handlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	_, err := h.accounts.Register(c.Request().Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, account.ErrRegistrationClosed):
		return echo.NewHTTPError(http.StatusForbidden, "registration is closed")
	case errors.Is(err, account.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	case err != nil:
		if handled, resp := policyErrors(c, err); handled {
			return resp
		}
		slog.Error("register_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	return message(c, http.StatusCreated, "registered")
}

// LoginRequest is the request body for the password step.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login runs the password step. Accounts with two-factor enabled receive a
// challenge id instead of a session; the same 401 covers unknown address and
// wrong password.
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	result, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, account.ErrSecondFactorRequired):
		h.metrics.Logins.WithLabelValues("second_factor_pending").Inc()
		return c.JSON(http.StatusOK, MessageResponse{
			Message:     i18n.T(c.Request().Context(), "login_second_factor"),
			MessageKey:  "login_second_factor",
			ChallengeID: result.ChallengeID,
		})
	case errors.Is(err, account.ErrInvalidLogin):
		h.metrics.Logins.WithLabelValues("denied").Inc()
		return message(c, http.StatusUnauthorized, "login_invalid")
	case err != nil:
		slog.Error("login_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	return h.issueSession(c, result.Account)
}

// ChallengeRequest is the request body for the code step of a two-factor
// login.
type ChallengeRequest struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

// LoginChallenge completes a two-factor login with a TOTP code.
func (h *Handlers) LoginChallenge(c echo.Context) error {
	var req ChallengeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	acct, err := h.accounts.CompleteChallenge(c.Request().Context(), req.ChallengeID, req.Code, h.twoFactor.VerifyCode)
	switch {
	case errors.Is(err, twofactor.ErrInvalidCode):
		h.metrics.Logins.WithLabelValues("code_denied").Inc()
		return message(c, http.StatusUnauthorized, "two_factor_code_invalid")
	case errors.Is(err, account.ErrInvalidLogin):
		h.metrics.Logins.WithLabelValues("denied").Inc()
		return message(c, http.StatusUnauthorized, "login_invalid")
	case err != nil:
		slog.Error("login_challenge_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	return h.issueSession(c, acct)
}

// issueSession creates the refresh session, mints the access credential and
// sets both cookies. Other live devices of the account see a session_joined
// push.
func (h *Handlers) issueSession(c echo.Context, acct *models.Account) error {
	device := deviceMetadata(c)

	sess, secret, err := h.sessions.Create(c.Request().Context(), acct.ID, device)
	if err != nil {
		slog.Error("session_create_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	accessToken, err := h.access.Mint(acct.ID, sess.ID)
	if err != nil {
		slog.Error("access_mint_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	refreshCookie, err := h.cookies.RefreshCookie(sess.ID, secret)
	if err != nil {
		slog.Error("refresh_cookie_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	c.SetCookie(h.cookies.AccessCookie(accessToken))
	c.SetCookie(refreshCookie)

	h.hub.NotifyAccount(acct.ID, realtime.SessionJoined{
		SessionID:      sess.ID,
		DeviceMetadata: device,
		Timestamp:      time.Now(),
	})
	h.metrics.Logins.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, map[string]any{
		"account": acct,
	})
}

// Refresh exchanges a valid refresh cookie for a fresh access credential.
// The registry row decides: a revoked or expired session never refreshes,
// regardless of the cookie's cryptographic validity.
func (h *Handlers) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(session.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "no refresh credential")
	}

	sessionID, secret, err := h.cookies.DecodeRefresh(cookie.Value)
	if err != nil {
		h.clearCookies(c)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh credential")
	}

	sess, err := h.sessions.Resolve(c.Request().Context(), sessionID, secret)
	if err != nil {
		h.clearCookies(c)
		if errors.Is(err, session.ErrSessionNotFound) ||
			errors.Is(err, session.ErrSessionInactive) ||
			errors.Is(err, session.ErrSecretMismatch) {
			return echo.NewHTTPError(http.StatusUnauthorized, "session no longer active")
		}
		slog.Error("refresh_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "refresh failed")
	}

	accessToken, err := h.access.Mint(sess.AccountID, sess.ID)
	if err != nil {
		slog.Error("access_mint_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "refresh failed")
	}

	if err := h.sessions.Touch(c.Request().Context(), sess.ID); err != nil {
		slog.Warn("session_touch_failed", "session_id", sess.ID, "error", err)
	}

	c.SetCookie(h.cookies.AccessCookie(accessToken))
	return c.JSON(http.StatusOK, map[string]any{
		"expires_in": int(h.access.TTL().Seconds()),
	})
}

// Logout revokes the current session and clears both cookies. Idempotent;
// logging out twice is fine.
func (h *Handlers) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(session.RefreshCookieName); err == nil && cookie.Value != "" {
		if sessionID, _, err := h.cookies.DecodeRefresh(cookie.Value); err == nil {
			if err := h.sessions.Revoke(c.Request().Context(), sessionID); err != nil {
				slog.Warn("logout_revoke_failed", "session_id", sessionID, "error", err)
			}
		}
	}

	h.clearCookies(c)
	return message(c, http.StatusOK, "logged_out")
}

func (h *Handlers) clearCookies(c echo.Context) {
	for _, cookie := range h.cookies.Clear() {
		c.SetCookie(cookie)
	}
}

// deviceMetadata derives a short device description from the request.
func deviceMetadata(c echo.Context) string {
	ua := c.Request().UserAgent()
	if len(ua) > 120 {
		ua = ua[:120]
	}
	return ua
}
