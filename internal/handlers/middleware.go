// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quistova/shopfront/internal/auth"
	"github.com/quistova/shopfront/internal/i18n"
	"github.com/quistova/shopfront/internal/repository"
	"github.com/quistova/shopfront/internal/session"
)

// Locale resolves the request language from Accept-Language and stores it in
// the context for i18n lookups.
func Locale() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tag := i18n.MatchLanguage(c.Request().Header.Get("Accept-Language"))
			ctx := i18n.WithLocale(c.Request().Context(), tag)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// Authenticate parses the access cookie and, when valid, loads the account
// into the request context. Requests without a valid credential pass through
// unauthenticated; RequireAuth decides whether that matters.
func (h *Handlers) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(session.AccessCookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			accountID, sessionID, err := h.access.Parse(cookie.Value)
			if err != nil {
				return next(c)
			}

			account, err := h.repo.GetAccountByID(c.Request().Context(), accountID)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					slog.Error("authenticate_load_failed", "error", err)
				}
				return next(c)
			}

			ctx := auth.SetAccount(c.Request().Context(), account)
			ctx = auth.SetSessionID(ctx, sessionID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireAuth rejects unauthenticated requests with 401.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !auth.IsAuthenticated(c.Request().Context()) {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			return next(c)
		}
	}
}

// RequireAdmin rejects requests whose account is not an admin.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account := auth.GetAccount(c.Request().Context())
			if account == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !account.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}

// RateLimit throttles an endpoint per client IP. The limiter fails open, so
// a broken redis never locks customers out.
func (h *Handlers) RateLimit(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := scope + ":" + c.RealIP()
			ok, err := h.limiter.Allow(c.Request().Context(), key)
			if err != nil {
				slog.Warn("rate_limit_check_failed", "scope", scope, "error", err)
			}
			if !ok {
				return message(c, http.StatusTooManyRequests, "rate_limited")
			}
			return next(c)
		}
	}
}
