// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quistova/shopfront/internal/handlers"
	"github.com/quistova/shopfront/internal/metrics"
)

func setupRoutes(e *echo.Echo, h *handlers.Handlers, m *metrics.Metrics) {
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	api := e.Group("/api/v1")

	// Authentication
	api.POST("/auth/register", h.Register, h.RateLimit("register"))
	api.POST("/auth/login", h.Login, h.RateLimit("login"))
	api.POST("/auth/login/challenge", h.LoginChallenge, h.RateLimit("login"))
	api.POST("/auth/refresh", h.Refresh)
	api.POST("/auth/logout", h.Logout)

	// Token-bearing flows, no session required
	api.POST("/account/verify-email", h.VerifyEmail, h.RateLimit("token"))
	api.POST("/account/request-password-reset", h.RequestPasswordReset, h.RateLimit("reset"))
	api.POST("/account/reset-password", h.ResetPassword, h.RateLimit("token"))
	api.POST("/account/confirm-email-change", h.ConfirmEmailChange, h.RateLimit("token"))

	// Authenticated account management
	acct := api.Group("/account", handlers.RequireAuth())
	acct.GET("/me", h.Me)
	acct.POST("/change-password", h.ChangePassword)
	acct.POST("/request-email-change", h.RequestEmailChange)
	acct.PUT("/recovery-email", h.SetRecoveryEmail)
	acct.POST("/two-factor/enable", h.EnableTwoFactor)
	acct.POST("/two-factor/disable", h.DisableTwoFactor)
	acct.GET("/sessions", h.ListSessions)
	acct.DELETE("/sessions/:id", h.RevokeSession)
	acct.GET("/events", h.Events)

	// Admin
	admin := api.Group("/admin", handlers.RequireAdmin())
	admin.POST("/accounts/:id/revoke-sessions", h.AdminRevokeSessions)
}
