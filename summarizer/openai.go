package summarizer

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// openAIAdapter speaks the chat-completion schema shared by OpenAI, DeepSeek,
// Qwen, and ByteDance. The kind only changes the endpoint and default model;
// request and response envelopes are identical across the family.
type openAIAdapter struct {
	client    *openai.Client
	kind      ProviderKind
	model     string
	maxTokens int
}

func newOpenAIAdapter(cfg ProviderConfig) (ProviderAdapter, error) {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = resolveBaseURL(cfg)
	clientCfg.HTTPClient = newHTTPClient(cfg)

	return &openAIAdapter{
		client:    openai.NewClientWithConfig(clientCfg),
		kind:      cfg.Kind,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (a *openAIAdapter) Kind() ProviderKind {
	return a.kind
}

func (a *openAIAdapter) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = a.maxTokens
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   maxTokens,
		Temperature: generationTemperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{
			Kind: ErrorKindPermanent,
			Err:  errors.New("response contained no choices"),
		}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classifyOpenAIError maps go-openai errors onto the ErrorKind set. API
// errors carry the HTTP status; everything else is a transport-level failure.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Kind:       classifyStatus(apiErr.HTTPStatusCode),
			StatusCode: apiErr.HTTPStatusCode,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{
			Kind:       classifyStatus(reqErr.HTTPStatusCode),
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}

	return classifyTransport(err)
}
