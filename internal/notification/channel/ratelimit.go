package channel

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"hemolink/internal/notification"
)

// RateLimited throttles sends to the wrapped channel. Waiting respects ctx,
// so a per-recipient timeout also bounds the time spent queued.
type RateLimited struct {
	next    notification.Channel
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond sends with the given burst. A non-positive
// rate disables throttling.
func NewRateLimited(next notification.Channel, perSecond float64, burst int) *RateLimited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (c *RateLimited) Name() string { return c.next.Name() }

func (c *RateLimited) Send(ctx context.Context, env notification.Envelope) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return c.next.Send(ctx, env)
}
