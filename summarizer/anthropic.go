package summarizer

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// anthropicAdapter speaks the Anthropic Messages API. Auth uses an x-api-key
// header plus a protocol version header, both handled by the SDK; the system
// text is folded into the single user turn.
type anthropicAdapter struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

func newAnthropicAdapter(cfg ProviderConfig) (ProviderAdapter, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(newHTTPClient(cfg)),
		// Retries are owned by the dispatcher's retry policy.
		option.WithMaxRetries(0),
	}

	if url := resolveBaseURL(cfg); url != "" {
		opts = append(opts, option.WithBaseURL(url))
	}
	if cfg.AnthropicVersion != "" {
		opts = append(opts, option.WithHeader("anthropic-version", cfg.AnthropicVersion))
	}
	for k, v := range cfg.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &anthropicAdapter{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (a *anthropicAdapter) Kind() ProviderKind {
	return ProviderAnthropic
}

func (a *anthropicAdapter) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = a.maxTokens
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(maxTokens),
		Temperature: param.NewOpt(float64(generationTemperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(systemPrompt + "\n\n" + req.Prompt)),
		},
	})
	if err != nil {
		return "", classifyAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &ProviderError{
			Kind: ErrorKindPermanent,
			Err:  errors.New("response contained no text blocks"),
		}
	}

	return text, nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Kind:       classifyStatus(apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Err:        err,
		}
	}
	return classifyTransport(err)
}
