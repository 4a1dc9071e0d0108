package research

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"concierge/internal/queue"
)

// Limited spaces provider calls so a parallel queue cannot exceed the
// provider's request quota.
type Limited struct {
	next    Provider
	limiter *rate.Limiter
}

// NewLimited wraps next with a limiter allowing perMinute lookups per minute.
func NewLimited(next Provider, perMinute int) *Limited {
	if perMinute <= 0 {
		return &Limited{next: next, limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Name reports the wrapped provider's name.
func (l *Limited) Name() string { return l.next.Name() }

// Lookup waits for a token, then delegates. Waiting counts against the job's
// timeout because it happens under the caller's context.
func (l *Limited) Lookup(ctx context.Context, guest queue.Guest) (Finding, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Finding{}, providerError(l.Name(), "rate limit", err)
	}
	return l.next.Lookup(ctx, guest)
}
