package summarizer

import (
	"context"
	"errors"
	"fmt"
)

// Document is a single text item to be summarized. Documents are owned by the
// caller and never mutated by the library.
type Document struct {
	ID    string           // Opaque identifier, echoed back on the Result
	Text  string           // The text to summarize
	Hints *GenerationHints // Optional per-document generation parameters
}

// GenerationHints carries optional per-document overrides for the generation
// request. Zero values mean "use the configured default".
type GenerationHints struct {
	MaxTokens int    // Response token budget for this document
	Style     string // Free-form style instruction woven into the prompt
}

// Status reports how a single document's task ended.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ErrorKind classifies a failed provider attempt. The set is closed; it is
// assigned once per attempt by the provider adapter and drives retry
// decisions.
type ErrorKind string

const (
	// ErrorKindRateLimited means the backend signalled over-quota (HTTP 429).
	ErrorKindRateLimited ErrorKind = "rate_limited"
	// ErrorKindTransient covers 5xx responses, connection failures, and
	// request timeouts. Assumed recoverable.
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindAuth means the credentials were rejected (HTTP 401/403).
	// Never recoverable by retrying.
	ErrorKindAuth ErrorKind = "auth"
	// ErrorKindPermanent covers malformed requests and any other
	// unclassified failure. Never recoverable by retrying.
	ErrorKindPermanent ErrorKind = "permanent"
	// ErrorKindDeadline marks tasks that were never started because the
	// batch deadline passed first. No adapter call is made for these.
	ErrorKindDeadline ErrorKind = "deadline"
)

// Result is the outcome of one document's task. The Result slice returned by
// Summarize always matches the input slice in length and order.
type Result struct {
	DocumentID string    // Copied from the input Document
	Index      int       // Position in the input batch
	Status     Status    // Success or Failed
	Summary    string    // Generated summary text, set on success
	ErrorKind  ErrorKind // Classification of the final error, set on failure
	Err        error     // The final error observed, set on failure
}

// Summarizer processes ordered document batches.
type Summarizer interface {
	// Summarize runs one task per document across the worker pool and
	// returns results in input order. Per-document failures are reported in
	// the Result slice; the error return is reserved for batch-level
	// problems such as an empty batch.
	Summarize(ctx context.Context, docs []Document) ([]Result, error)
}

// GenerateRequest is the provider-independent form of one generation attempt.
type GenerateRequest struct {
	Prompt    string
	MaxTokens int
}

// ProviderAdapter translates a prompt into a backend-specific request and the
// response back into plain text. Implementations are stateless after
// construction and safe for concurrent use; every error they return carries a
// ProviderError classification.
type ProviderAdapter interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Kind() ProviderKind
}

// ProviderKind identifies a backend family variant.
type ProviderKind string

const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderDeepSeek  ProviderKind = "deepseek"
	ProviderQwen      ProviderKind = "qwen"
	ProviderByteDance ProviderKind = "bytedance"
	ProviderAnthropic ProviderKind = "anthropic"
	// ProviderClaude is accepted as an alias for ProviderAnthropic.
	ProviderClaude ProviderKind = "claude"
)

// ProviderError wraps a failed provider attempt with its classification and,
// when available, the HTTP status code that produced it.
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (%s, status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from an adapter error. Errors that do not
// carry a classification are treated as transient, matching how unknown
// failures are handled elsewhere in the retry path.
func KindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return ErrorKindTransient
}

// Error definitions
var (
	ErrMissingAPIKey         = errors.New("provider API key is required")
	ErrEmptyBatch            = errors.New("document batch cannot be empty")
	ErrUnknownProvider       = errors.New("unknown provider kind")
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrBatchDeadlineExceeded = errors.New("batch deadline exceeded before task started")
)
