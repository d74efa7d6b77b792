package summarizer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const rateLimitWindow = 60 * time.Second

// RateLimiter admits at most limit requests per fixed 60-second window,
// shared across all workers targeting the same provider session. It is a
// blocking backpressure mechanism: callers are delayed, never rejected.
//
// A RateLimiter may be shared across batches, or across summarizer instances
// that target the same backend quota, via WithRateLimiter.
type RateLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	windowStart time.Time
	count       int

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewRateLimiter creates a limiter admitting rpm requests per minute.
// rpm <= 0 disables limiting entirely.
func NewRateLimiter(rpm int) *RateLimiter {
	return &RateLimiter{
		limit:  rpm,
		window: rateLimitWindow,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Acquire blocks until the current window has capacity or ctx is cancelled.
// When the window is exhausted the caller suspends until it rolls over and
// then re-checks, so a request is never admitted beyond the window's limit.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	if l.limit <= 0 {
		return nil
	}

	for {
		l.mu.Lock()
		now := l.now()
		if now.Sub(l.windowStart) >= l.window {
			l.windowStart = now
			l.count = 0
		}
		if l.count < l.limit {
			l.count++
			l.mu.Unlock()
			return nil
		}
		wait := l.window - now.Sub(l.windowStart)
		l.mu.Unlock()

		slog.Debug("rate limit window exhausted, waiting",
			"limit_rpm", l.limit,
			"wait", wait)

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Limit returns the configured requests-per-minute budget.
func (l *RateLimiter) Limit() int {
	return l.limit
}

// sleepContext waits for d or until ctx is cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
