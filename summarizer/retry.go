package summarizer

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy decides whether a failed attempt is retried and how long the
// task waits first. Transient failures are always retryable; rate-limited
// ones only when configured; auth and permanent failures never are, because
// retrying cannot change their outcome.
type RetryPolicy struct {
	attempts    int
	baseDelay   time.Duration
	maxDelay    time.Duration
	onRateLimit bool
}

// NewRetryPolicy builds a policy from an already-defaulted RunConfig.
func NewRetryPolicy(run RunConfig) *RetryPolicy {
	return &RetryPolicy{
		attempts:    run.RetryAttempts,
		baseDelay:   run.RetryBaseDelay,
		maxDelay:    run.RetryMaxDelay,
		onRateLimit: run.RetryOnRateLimit,
	}
}

// Retryable reports whether an error of the given kind may consume retry
// budget.
func (p *RetryPolicy) Retryable(kind ErrorKind) bool {
	switch kind {
	case ErrorKindTransient:
		return true
	case ErrorKindRateLimited:
		return p.onRateLimit
	default:
		return false
	}
}

// Backoff returns a fresh delay sequence for one task's retry loop: the
// first retry waits the base delay and each subsequent one doubles it, capped
// at the configured maximum. The sequence stops after the attempt budget is
// spent, so a task makes at most attempts+1 provider calls.
func (p *RetryPolicy) Backoff() retry.Backoff {
	b := retry.NewExponential(p.baseDelay)
	if p.maxDelay > 0 {
		b = retry.WithCappedDuration(p.maxDelay, b)
	}
	return retry.WithMaxRetries(uint64(p.attempts), b)
}
