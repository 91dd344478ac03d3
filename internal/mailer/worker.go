// Copyright 2025 The Shopfront Authors
// Licensed under the EUPL-1.2

package mailer

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/text/language"

	"github.com/quistova/shopfront/internal/i18n"
)

// Async decorates a Dispatcher with a background delivery queue. Enqueuing
// never blocks the request path; transient SMTP failures are retried with
// bounded backoff and then dropped with a warning.
type Async struct {
	dispatcher Dispatcher
	queue      chan job
	observe    func(template, outcome string)
}

type job struct {
	templateID string
	toAddress  string
	vars       map[string]any
	locale     string
}

// NewAsync wraps dispatcher with a queue of the given depth. observe may be
// nil; otherwise it receives (template, outcome) per finished delivery.
func NewAsync(dispatcher Dispatcher, depth int, observe func(template, outcome string)) *Async {
	if depth <= 0 {
		depth = 64
	}
	if observe == nil {
		observe = func(string, string) {}
	}
	return &Async{
		dispatcher: dispatcher,
		queue:      make(chan job, depth),
		observe:    observe,
	}
}

// Start consumes the queue until ctx is cancelled.
func (a *Async) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-a.queue:
				a.deliver(ctx, j)
			}
		}
	}()
}

// SendTemplate enqueues a delivery and returns immediately. A full queue
// drops the mail; the session registry, not email receipt, is the security
// boundary.
func (a *Async) SendTemplate(ctx context.Context, templateID, toAddress string, vars map[string]any) error {
	j := job{templateID: templateID, toAddress: toAddress, vars: vars, locale: i18n.GetLocale(ctx)}
	select {
	case a.queue <- j:
	default:
		slog.Warn("mail_queue_full", "template", templateID)
		a.observe(templateID, "dropped")
	}
	return nil
}

func (a *Async) deliver(ctx context.Context, j job) {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	localized := i18n.WithLocale(ctx, language.Make(j.locale))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if sendErr := a.dispatcher.SendTemplate(localized, j.templateID, j.toAddress, j.vars); sendErr != nil {
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err != nil {
		slog.Warn("mail_delivery_failed", "template", j.templateID, "error", err)
		a.observe(j.templateID, "failed")
		return
	}
	a.observe(j.templateID, "sent")
}
