package summarizer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// dispatcher executes one task per document across a bounded worker pool and
// assembles results back into input order. Completion order across tasks is
// unspecified; each task writes only its own index slot.
type dispatcher struct {
	adapter       ProviderAdapter
	limiter       *RateLimiter
	policy        *RetryPolicy
	prompts       *promptBuilder
	metrics       *MetricsRecorder
	maxConcurrent int
	batchTimeout  time.Duration

	sleep func(context.Context, time.Duration) error
}

func (d *dispatcher) run(ctx context.Context, runID string, docs []Document) []Result {
	results := make([]Result, len(docs))
	sem := make(chan struct{}, d.maxConcurrent)

	// The batch deadline only gates task admission. In-flight tasks run to
	// their own per-request timeout and are never cancelled by it.
	var deadline <-chan struct{}
	if d.batchTimeout > 0 {
		deadlineCtx, cancel := context.WithTimeout(context.Background(), d.batchTimeout)
		defer cancel()
		deadline = deadlineCtx.Done()
	}

	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		go func(idx int, doc Document) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			select {
			case <-deadline:
				slog.Warn("batch deadline passed before task started",
					"run_id", runID,
					"document_id", doc.ID)
				results[idx] = Result{
					DocumentID: doc.ID,
					Index:      idx,
					Status:     StatusFailed,
					ErrorKind:  ErrorKindDeadline,
					Err:        ErrBatchDeadlineExceeded,
				}
				return
			default:
			}

			results[idx] = d.runTask(ctx, runID, idx, doc)
		}(i, docs[i])
	}
	wg.Wait()

	return results
}

// runTask is one document's retry loop: acquire the rate limiter, call the
// provider, classify the outcome, and either finish or back off and go again.
// Backoff suspends only this task; other workers keep running.
func (d *dispatcher) runTask(ctx context.Context, runID string, idx int, doc Document) Result {
	req, err := d.prompts.build(doc)
	if err != nil {
		return d.failed(idx, doc, ErrorKindPermanent, err)
	}
	d.metrics.RecordPromptSize(req.Prompt)

	provider := string(d.adapter.Kind())
	backoff := d.policy.Backoff()
	attempts := 0

	for {
		waitStart := time.Now()
		if err := d.limiter.Acquire(ctx); err != nil {
			return d.failed(idx, doc, ErrorKindDeadline, err)
		}
		d.metrics.RecordRateLimitWait(time.Since(waitStart).Seconds())

		attempts++
		d.metrics.RecordInFlight(1)
		callStart := time.Now()
		text, err := d.adapter.Generate(ctx, req)
		d.metrics.RecordInFlight(-1)
		d.metrics.RecordRequestDuration(time.Since(callStart).Seconds(), provider)

		if err == nil {
			d.metrics.RecordRequest("success", provider)
			if attempts > 1 {
				slog.Info("document summarized after retry",
					"run_id", runID,
					"document_id", doc.ID,
					"attempts", attempts)
			} else {
				slog.Debug("document summarized",
					"run_id", runID,
					"document_id", doc.ID)
			}
			return Result{
				DocumentID: doc.ID,
				Index:      idx,
				Status:     StatusSuccess,
				Summary:    text,
			}
		}

		kind := KindOf(err)
		d.metrics.RecordRequest("error", provider)
		d.metrics.RecordError(kind)

		if !d.policy.Retryable(kind) {
			slog.Warn("document failed with non-retryable error",
				"run_id", runID,
				"document_id", doc.ID,
				"kind", kind,
				"attempts", attempts,
				"error", err)
			return d.failed(idx, doc, kind, err)
		}

		delay, stop := backoff.Next()
		if stop {
			slog.Warn("document failed after exhausting retry budget",
				"run_id", runID,
				"document_id", doc.ID,
				"kind", kind,
				"attempts", attempts,
				"error", err)
			return d.failed(idx, doc, kind, err)
		}

		d.metrics.RecordRetry(kind)
		slog.Warn("retrying document after delay",
			"run_id", runID,
			"document_id", doc.ID,
			"kind", kind,
			"attempt", attempts,
			"delay", delay)

		if err := d.sleep(ctx, delay); err != nil {
			return d.failed(idx, doc, kind, err)
		}
	}
}

func (d *dispatcher) failed(idx int, doc Document, kind ErrorKind, err error) Result {
	return Result{
		DocumentID: doc.ID,
		Index:      idx,
		Status:     StatusFailed,
		ErrorKind:  kind,
		Err:        err,
	}
}
