package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// adapterFactory builds a provider adapter from an already-defaulted config.
type adapterFactory func(ProviderConfig) (ProviderAdapter, error)

// providerRegistry maps each supported kind to its adapter constructor. The
// set is closed: unknown kinds fail at construction time, never at dispatch.
var providerRegistry = map[ProviderKind]adapterFactory{
	ProviderOpenAI:    newOpenAIAdapter,
	ProviderDeepSeek:  newOpenAIAdapter,
	ProviderQwen:      newOpenAIAdapter,
	ProviderByteDance: newOpenAIAdapter,
	ProviderAnthropic: newAnthropicAdapter,
}

// Canonical endpoints, applied only when BaseURL is left empty. A configured
// BaseURL is always used verbatim.
var defaultEndpoints = map[ProviderKind]string{
	ProviderOpenAI:    "https://api.openai.com/v1",
	ProviderDeepSeek:  "https://api.deepseek.com/v1",
	ProviderQwen:      "https://dashscope.aliyuncs.com/compatible-mode/v1",
	ProviderByteDance: "https://ark.cn-beijing.volces.com/api/v3",
	ProviderAnthropic: "https://api.anthropic.com",
}

var defaultModels = map[ProviderKind]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderDeepSeek:  "deepseek-chat",
	ProviderQwen:      "qwen-plus",
	ProviderByteDance: "doubao-pro-32k",
	ProviderAnthropic: "claude-3-5-sonnet-20241022",
}

// NewProviderAdapter constructs the adapter for the configured kind via the
// registry. "claude" is accepted as an alias for "anthropic".
func NewProviderAdapter(cfg ProviderConfig) (ProviderAdapter, error) {
	kind := cfg.Kind.normalize()
	factory, ok := providerRegistry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: openai, deepseek, qwen, bytedance, anthropic, claude)", ErrUnknownProvider, cfg.Kind)
	}
	cfg.Kind = kind
	return factory(cfg.withDefaults())
}

// DefaultEndpoint returns the canonical endpoint for a provider kind, or the
// empty string for unknown kinds.
func DefaultEndpoint(kind ProviderKind) string {
	return defaultEndpoints[kind.normalize()]
}

func (k ProviderKind) normalize() ProviderKind {
	kind := ProviderKind(strings.ToLower(strings.TrimSpace(string(k))))
	if kind == ProviderClaude {
		return ProviderAnthropic
	}
	return kind
}

func defaultModel(kind ProviderKind) string {
	return defaultModels[kind]
}

func resolveBaseURL(cfg ProviderConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	return defaultEndpoints[cfg.Kind]
}

// classifyStatus maps an HTTP status code onto an ErrorKind.
func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorKindRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrorKindAuth
	case code >= 500:
		return ErrorKindTransient
	default:
		return ErrorKindPermanent
	}
}

// classifyTransport classifies errors that never produced an HTTP status:
// timeouts and connection failures are transient, anything else is not
// worth retrying.
func classifyTransport(err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: ErrorKindTransient, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ProviderError{Kind: ErrorKindTransient, Err: err}
	}
	return &ProviderError{Kind: ErrorKindPermanent, Err: err}
}

// headerTransport injects configured extra headers into every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	for k, v := range t.headers {
		cloned.Header.Set(k, v)
	}
	return t.base.RoundTrip(cloned)
}

func newHTTPClient(cfg ProviderConfig) *http.Client {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	if len(cfg.ExtraHeaders) > 0 {
		client.Transport = &headerTransport{
			base:    http.DefaultTransport,
			headers: cfg.ExtraHeaders,
		}
	}
	return client
}
