// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

// Package metrics exposes Prometheus instrumentation for the security flows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors of the account service. It is constructed
// once and injected; no package-level registry state.
type Metrics struct {
	Registry *prometheus.Registry

	Logins            *prometheus.CounterVec
	TokensIssued      *prometheus.CounterVec
	TokensConsumed    *prometheus.CounterVec
	SessionsRevoked   prometheus.Counter
	ForcedLogouts     *prometheus.CounterVec
	RealtimeClients   prometheus.Gauge
	EmailsDispatched  *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopfront_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		TokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopfront_one_time_tokens_issued_total",
			Help: "One-time tokens issued by purpose.",
		}, []string{"purpose"}),
		TokensConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopfront_one_time_tokens_consumed_total",
			Help: "One-time token consumption attempts by outcome.",
		}, []string{"purpose", "outcome"}),
		SessionsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "shopfront_sessions_revoked_total",
			Help: "Refresh sessions deactivated by bulk revocation.",
		}),
		ForcedLogouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopfront_forced_logouts_total",
			Help: "Forced-logout broadcasts by reason.",
		}, []string{"reason"}),
		RealtimeClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shopfront_realtime_clients",
			Help: "Currently connected realtime clients.",
		}),
		EmailsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopfront_emails_dispatched_total",
			Help: "Security emails by template and outcome.",
		}, []string{"template", "outcome"}),
	}
}
