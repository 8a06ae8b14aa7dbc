package source

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// AnthropicDefaultModel is used when no model is configured.
	AnthropicDefaultModel = "claude-3-5-sonnet-20241022"

	anthropicDefaultMaxTokens = 1024
)

func init() {
	RegisterBackendFactory("anthropic", newAnthropicBackend)
}

// anthropicBackend implements Backend for Anthropic's Messages API.
type anthropicBackend struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature *float64
	system      string
	classifier  *ErrorClassifier
}

func newAnthropicBackend(cfg Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = AnthropicDefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		validated, err := ValidateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithBaseURL(validated))
	}

	return &anthropicBackend{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		system:      cfg.System,
		classifier:  &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// Generate sends prompt as a single user message and concatenates the text
// blocks of the reply.
func (b *anthropicBackend) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if t, ok := validTemperature(b.temperature); ok {
		params.Temperature = anthropic.Float(t)
	}
	if b.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: b.system}}
	}

	message, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", Usage{}, b.handleError(err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	content := sb.String()
	if content == "" {
		return "", Usage{}, NewProviderError("anthropic", ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	usage := Usage{
		InputTokens:  tokensOr(int(message.Usage.InputTokens), prompt),
		OutputTokens: tokensOr(int(message.Usage.OutputTokens), content),
	}
	return content, usage, nil
}

func (b *anthropicBackend) handleError(err error) error {
	if isContextError(err) {
		return b.classifier.ClassifyContextError(err)
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return b.classifier.ClassifyHTTPError(apiErr.StatusCode, "", err)
	}
	return NewProviderError("anthropic", ErrorTypeNetwork, 0, "request failed", err)
}

func (b *anthropicBackend) Provider() string { return "anthropic" }

func (b *anthropicBackend) Model() string { return b.model }
