package summarizer

import (
	"errors"
	"fmt"
	"text/template"
	"time"
)

const (
	defaultMaxTokens      = 1024
	defaultRequestTimeout = 60 * time.Second
	defaultMaxConcurrent  = 4
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// ProviderConfig describes the backend a batch talks to. It is an immutable
// value object, shared read-only across all workers.
type ProviderConfig struct {
	Kind             ProviderKind      // Which backend family to use (required)
	APIKey           string            // Credential for the backend (required)
	Model            string            // Model name; empty selects a per-kind default
	BaseURL          string            // Endpoint override; empty selects the kind's canonical endpoint
	MaxTokens        int               // Default response token budget (0 = 1024)
	RequestTimeout   time.Duration     // Per-request timeout (0 = 60s)
	AnthropicVersion string            // Protocol version header for Anthropic-style backends
	ExtraHeaders     map[string]string // Additional headers sent with every request
}

// RunConfig controls scheduling, rate limiting, and retry behavior for a
// summarizer instance.
type RunConfig struct {
	MaxConcurrent        int            // Worker pool size (0 = 4, must not be negative)
	RateLimitRPM         int            // Requests admitted per 60s window (0 = unlimited)
	RetryOnRateLimit     bool           // Whether 429s consume retry budget or fail immediately
	RetryAttempts        int            // Retries after the first attempt (0 = no retries)
	RetryBaseDelay       time.Duration  // First retry delay; doubles per attempt (0 = 1s)
	RetryMaxDelay        time.Duration  // Cap on a single backoff delay (0 = 30s)
	BatchTimeout         time.Duration  // Deadline for starting tasks (0 = none)
	EnableCircuitBreaker bool           // Wrap the adapter in a circuit breaker
	CircuitBreaker       *BreakerConfig // Breaker settings; nil uses defaults
	EnableMetrics        bool           // Record Prometheus metrics
	PromptTemplate       string         // Custom prompt template (text/template syntax)
}

// Config is the full configuration consumed by New.
type Config struct {
	Provider ProviderConfig
	Run      RunConfig
}

// NewDefaultConfig creates a config with sensible defaults for the given
// provider kind.
func NewDefaultConfig(kind ProviderKind, apiKey string) Config {
	return Config{
		Provider: ProviderConfig{
			Kind:           kind,
			APIKey:         apiKey,
			RequestTimeout: defaultRequestTimeout,
			MaxTokens:      defaultMaxTokens,
		},
		Run: RunConfig{
			MaxConcurrent:  defaultMaxConcurrent,
			RetryAttempts:  defaultRetryAttempts,
			RetryBaseDelay: defaultRetryBaseDelay,
			RetryMaxDelay:  defaultRetryMaxDelay,
		},
	}
}

// WithModel sets the model name.
func (c Config) WithModel(model string) Config {
	c.Provider.Model = model
	return c
}

// WithBaseURL overrides the provider's canonical endpoint. The URL is used
// verbatim, which supports private proxies and self-hosted gateways.
func (c Config) WithBaseURL(url string) Config {
	c.Provider.BaseURL = url
	return c
}

// WithRequestTimeout sets the per-request timeout.
func (c Config) WithRequestTimeout(timeout time.Duration) Config {
	c.Provider.RequestTimeout = timeout
	return c
}

// WithMaxConcurrent sets the worker pool size.
func (c Config) WithMaxConcurrent(n int) Config {
	c.Run.MaxConcurrent = n
	return c
}

// WithRateLimit sets the requests-per-minute budget shared by all workers.
func (c Config) WithRateLimit(rpm int) Config {
	c.Run.RateLimitRPM = rpm
	return c
}

// WithRetry configures the retry budget and base backoff delay, and enables
// retrying rate-limited attempts.
func (c Config) WithRetry(attempts int, baseDelay time.Duration) Config {
	c.Run.RetryAttempts = attempts
	c.Run.RetryBaseDelay = baseDelay
	c.Run.RetryOnRateLimit = true
	return c
}

// WithBatchTimeout sets a batch-level deadline. Tasks not yet started when it
// passes are reported as failed without calling the backend.
func (c Config) WithBatchTimeout(timeout time.Duration) Config {
	c.Run.BatchTimeout = timeout
	return c
}

// WithCircuitBreaker enables the circuit breaker with default settings.
func (c Config) WithCircuitBreaker() Config {
	c.Run.EnableCircuitBreaker = true
	return c
}

// WithMetrics enables Prometheus metrics recording.
func (c Config) WithMetrics() Config {
	c.Run.EnableMetrics = true
	return c
}

// WithPromptTemplate sets a custom prompt template. The template receives the
// document's ID, Text, and Style fields.
func (c Config) WithPromptTemplate(templateText string) Config {
	c.Run.PromptTemplate = templateText
	return c
}

// Validate checks whether the config can construct a working summarizer.
func (c Config) Validate() error {
	if err := c.Provider.validate(); err != nil {
		return err
	}
	return c.Run.validate()
}

func (c ProviderConfig) validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if _, ok := providerRegistry[c.Kind.normalize()]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Kind)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: request timeout must not be negative", ErrInvalidConfig)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: max tokens must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c RunConfig) validate() error {
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("%w: MaxConcurrent must not be negative", ErrInvalidConfig)
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("%w: RateLimitRPM must not be negative", ErrInvalidConfig)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: RetryAttempts must not be negative", ErrInvalidConfig)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("%w: RetryBaseDelay must not be negative", ErrInvalidConfig)
	}
	if c.BatchTimeout < 0 {
		return fmt.Errorf("%w: BatchTimeout must not be negative", ErrInvalidConfig)
	}
	if c.PromptTemplate != "" {
		if _, err := template.New("prompt").Parse(c.PromptTemplate); err != nil {
			return errors.Join(fmt.Errorf("%w: invalid prompt template", ErrInvalidConfig), err)
		}
	}
	return nil
}

// withDefaults fills zero-valued fields. Negative values are left alone so
// Validate can reject them.
func (c ProviderConfig) withDefaults() ProviderConfig {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Model == "" {
		c.Model = defaultModel(c.Kind.normalize())
	}
	return c
}

func (c RunConfig) withDefaults() RunConfig {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.RetryMaxDelay == 0 {
		c.RetryMaxDelay = defaultRetryMaxDelay
	}
	return c
}
