package summarizer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	MaxRequests   uint32                                      // Max requests allowed in half-open state
	Interval      time.Duration                               // Count reset interval in closed state
	Timeout       time.Duration                               // How long the breaker stays open
	ReadyToTrip   func(counts gobreaker.Counts) bool          // Custom trip condition
	OnStateChange func(name string, from, to gobreaker.State) // State change callback
}

func defaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 10 && failureRatio > 0.6)
		},
	}
}

// breakerAdapter decorates a ProviderAdapter with a circuit breaker. While
// the breaker is open, calls fail fast with a transient classification so the
// retry policy can still salvage tasks once the backend recovers.
type breakerAdapter struct {
	inner   ProviderAdapter
	cb      *gobreaker.CircuitBreaker[string]
	metrics *MetricsRecorder
}

// NewBreakerAdapter wraps an adapter in a circuit breaker. A nil config uses
// defaults: trip on 5 consecutive failures or a 60% failure rate.
func NewBreakerAdapter(inner ProviderAdapter, config *BreakerConfig, metrics *MetricsRecorder) ProviderAdapter {
	if config == nil {
		config = defaultBreakerConfig()
	}
	if metrics == nil {
		metrics = NewMetricsRecorder(false)
	}

	name := string(inner.Kind())
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: config.ReadyToTrip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
			metrics.RecordBreakerState(name, int(to))

			if config.OnStateChange != nil {
				config.OnStateChange(name, from, to)
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Rate limits are expected backpressure, not a sign the
			// backend is down.
			return KindOf(err) == ErrorKindRateLimited
		},
	}

	return &breakerAdapter{
		inner:   inner,
		cb:      gobreaker.NewCircuitBreaker[string](settings),
		metrics: metrics,
	}
}

func (a *breakerAdapter) Kind() ProviderKind {
	return a.inner.Kind()
}

func (a *breakerAdapter) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	text, err := a.cb.Execute(func() (string, error) {
		return a.inner.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &ProviderError{Kind: ErrorKindTransient, Err: err}
		}
		return "", err
	}
	return text, nil
}

// State returns the breaker's current state.
func (a *breakerAdapter) State() gobreaker.State {
	return a.cb.State()
}
