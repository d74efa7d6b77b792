package summarizer

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/pkoukk/tiktoken-go"
)

const generationTemperature = 0.2

const systemPrompt = "You are a professional research assistant. Summarize documents " +
	"for busy readers: concise, structured, and faithful to the source text. " +
	"Use clear Markdown formatting."

//go:embed prompts/summarize.txt
var promptFS embed.FS

var defaultPromptTemplate string

func init() {
	promptBytes, err := promptFS.ReadFile("prompts/summarize.txt")
	if err != nil {
		panic(fmt.Sprintf("failed to load default prompt template: %v", err))
	}
	defaultPromptTemplate = string(promptBytes)
}

// promptData is the data a prompt template is executed against.
type promptData struct {
	ID    string
	Text  string
	Style string
}

// promptBuilder renders one generation request per document, applying the
// document's hints over the configured defaults.
type promptBuilder struct {
	tmpl *template.Template
}

func newPromptBuilder(templateText string) (*promptBuilder, error) {
	if templateText == "" {
		templateText = defaultPromptTemplate
	}
	tmpl, err := template.New("prompt").Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid prompt template: %v", ErrInvalidConfig, err)
	}
	return &promptBuilder{tmpl: tmpl}, nil
}

func (b *promptBuilder) build(doc Document) (GenerateRequest, error) {
	data := promptData{ID: doc.ID, Text: doc.Text}
	var maxTokens int
	if doc.Hints != nil {
		data.Style = doc.Hints.Style
		maxTokens = doc.Hints.MaxTokens
	}

	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, data); err != nil {
		return GenerateRequest{}, fmt.Errorf("failed to render prompt for document %q: %w", doc.ID, err)
	}

	return GenerateRequest{
		Prompt:    sb.String(),
		MaxTokens: maxTokens,
	}, nil
}

var (
	tokenEncodingOnce sync.Once
	tokenEncoding     *tiktoken.Tiktoken
)

// estimateTokens returns a best-effort token count for metrics. When the
// tiktoken encoding is unavailable it falls back to the usual four
// characters per token heuristic.
func estimateTokens(text string) int {
	tokenEncodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tokenEncoding = enc
		}
	})
	if tokenEncoding == nil {
		return len(text) / 4
	}
	return len(tokenEncoding.Encode(text, nil, nil))
}
