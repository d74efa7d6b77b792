package summarizer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// service ties one provider adapter, one rate limiter, and one retry policy
// together. All three are shared across every batch the instance runs.
type service struct {
	adapter ProviderAdapter
	limiter *RateLimiter
	policy  *RetryPolicy
	prompts *promptBuilder
	metrics *MetricsRecorder
	run     RunConfig
}

// Option customizes a summarizer built by New or NewWithAdapter.
type Option func(*service)

// WithRateLimiter replaces the instance's rate limiter, allowing one limiter
// to be shared across several summarizer instances that target the same
// backend quota.
func WithRateLimiter(l *RateLimiter) Option {
	return func(s *service) {
		s.limiter = l
	}
}

// New creates a Summarizer for the configured provider. Construction fails on
// misconfiguration (missing credentials, unknown provider kind, negative
// limits); per-document failures at dispatch time never do.
func New(cfg Config, opts ...Option) (Summarizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	adapter, err := NewProviderAdapter(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return NewWithAdapter(adapter, cfg.Run, opts...)
}

// NewWithAdapter creates a Summarizer around a caller-supplied adapter. This
// is the seam used by tests and by callers with bespoke backends.
func NewWithAdapter(adapter ProviderAdapter, run RunConfig, opts ...Option) (Summarizer, error) {
	if err := run.validate(); err != nil {
		return nil, err
	}
	run = run.withDefaults()

	prompts, err := newPromptBuilder(run.PromptTemplate)
	if err != nil {
		return nil, err
	}

	metrics := NewMetricsRecorder(run.EnableMetrics)
	if run.EnableCircuitBreaker {
		adapter = NewBreakerAdapter(adapter, run.CircuitBreaker, metrics)
	}

	s := &service{
		adapter: adapter,
		limiter: NewRateLimiter(run.RateLimitRPM),
		policy:  NewRetryPolicy(run),
		prompts: prompts,
		metrics: metrics,
		run:     run,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Summarize runs one task per document and returns results in input order.
// Callers must inspect per-item Status to detect partial failure: the batch
// call itself succeeds as long as it ran to completion.
func (s *service) Summarize(ctx context.Context, docs []Document) ([]Result, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyBatch
	}

	runID := uuid.NewString()
	slog.Info("summarizing batch",
		"run_id", runID,
		"documents", len(docs),
		"provider", s.adapter.Kind(),
		"max_concurrent", s.run.MaxConcurrent,
		"rate_limit_rpm", s.limiter.Limit())
	s.metrics.RecordBatchSize(len(docs))

	d := &dispatcher{
		adapter:       s.adapter,
		limiter:       s.limiter,
		policy:        s.policy,
		prompts:       s.prompts,
		metrics:       s.metrics,
		maxConcurrent: s.run.MaxConcurrent,
		batchTimeout:  s.run.BatchTimeout,
		sleep:         sleepContext,
	}
	results := d.run(ctx, runID, docs)

	succeeded := 0
	for _, r := range results {
		s.metrics.RecordDocument(r.Status)
		if r.Status == StatusSuccess {
			succeeded++
		}
	}
	slog.Info("batch complete",
		"run_id", runID,
		"documents", len(docs),
		"succeeded", succeeded,
		"failed", len(docs)-succeeded)

	return results, nil
}
