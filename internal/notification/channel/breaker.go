package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hemolink/internal/notification"
	"hemolink/internal/notification/metrics"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/platform/circuit"
	"hemolink/pkg/platform/sentinel"
)

// Breaker short-circuits a failing channel. While the circuit is open every
// send fails with sentinel.ErrCircuitOpen; the fallback channel, when set,
// still receives the message so it is not lost from operator view, but that
// is never reported as a delivery. Rejected recipients and caller
// cancellation do not count as failures.
type Breaker struct {
	primary  notification.Channel
	fallback notification.Channel
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type BreakerOption func(*Breaker)

func WithFallback(ch notification.Channel) BreakerOption {
	return func(b *Breaker) {
		b.fallback = ch
	}
}

func WithBreakerLogger(logger *slog.Logger) BreakerOption {
	return func(b *Breaker) {
		b.logger = logger
	}
}

func WithBreakerMetrics(m *metrics.Metrics) BreakerOption {
	return func(b *Breaker) {
		b.metrics = m
	}
}

func NewBreaker(primary notification.Channel, breaker *circuit.Breaker, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		primary: primary,
		breaker: breaker,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.metrics.SetCircuitOpen(primary.Name(), false)
	return b
}

func (b *Breaker) Name() string { return b.primary.Name() }

func (b *Breaker) Send(ctx context.Context, env notification.Envelope) error {
	if !b.breaker.Allow() {
		return b.sendFallback(ctx, env)
	}

	err := b.primary.Send(ctx, env)
	switch {
	case err == nil:
		if _, change := b.breaker.RecordSuccess(); change.Closed {
			b.logger.InfoContext(ctx, "notification circuit closed", "channel", b.primary.Name())
			b.metrics.SetCircuitOpen(b.primary.Name(), false)
		}
		return nil
	case !countsAsFailure(err):
		return err
	}

	if _, change := b.breaker.RecordFailure(); change.Opened {
		b.logger.WarnContext(ctx, "notification circuit opened",
			"channel", b.primary.Name(),
			"error", err,
		)
		b.metrics.SetCircuitOpen(b.primary.Name(), true)
	}
	return err
}

func (b *Breaker) sendFallback(ctx context.Context, env notification.Envelope) error {
	open := fmt.Errorf("%s: %w", b.primary.Name(), sentinel.ErrCircuitOpen)
	if b.fallback == nil {
		return open
	}
	if err := b.fallback.Send(ctx, env); err != nil {
		return errors.Join(open, fmt.Errorf("fallback %s: %w", b.fallback.Name(), err))
	}
	return open
}

func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !dErrors.HasCode(err, dErrors.CodeInvalidInput)
}
