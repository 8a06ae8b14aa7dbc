package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// OpenAIDefaultModel is used when no model is configured.
	OpenAIDefaultModel = "gpt-4o-mini"
)

// openAICompatible lists providers that speak the OpenAI chat completions
// protocol, with their default endpoint and model.
var openAICompatible = map[string]struct {
	baseURL string
	model   string
}{
	"deepseek": {baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
	"grok":     {baseURL: "https://api.x.ai/v1", model: "grok-2-latest"},
	"mistral":  {baseURL: "https://api.mistral.ai/v1", model: "mistral-large-latest"},
}

func init() {
	RegisterBackendFactory("openai", func(cfg Config) (Backend, error) {
		return newOpenAIBackend("openai", cfg, OpenAIDefaultModel)
	})
	for name, preset := range openAICompatible {
		RegisterBackendFactory(name, func(cfg Config) (Backend, error) {
			if cfg.BaseURL == "" {
				cfg.BaseURL = preset.baseURL
			}
			return newOpenAIBackend(name, cfg, preset.model)
		})
	}
}

// openAIBackend implements Backend for OpenAI and compatible APIs.
type openAIBackend struct {
	client      *openai.Client
	provider    string
	model       string
	maxTokens   int
	temperature *float64
	system      string
	classifier  *ErrorClassifier
}

func newOpenAIBackend(provider string, cfg Config, defaultModel string) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		validated, err := ValidateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = validated
	}
	if timeout := ClampTimeout(cfg.Timeout); timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &openAIBackend{
		client:      openai.NewClientWithConfig(clientConfig),
		provider:    provider,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		system:      cfg.System,
		classifier:  &ErrorClassifier{Provider: provider},
	}, nil
}

// Generate sends prompt as a single user message.
func (b *openAIBackend) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	resp, err := b.client.CreateChatCompletion(ctx, b.buildRequest(prompt))
	if err != nil {
		return "", Usage{}, b.handleError(err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, NewProviderError(b.provider, ErrorTypeUnknown, 0, "", ErrNoResponseChoice)
	}

	content := resp.Choices[0].Message.Content
	usage := Usage{
		InputTokens:  tokensOr(resp.Usage.PromptTokens, prompt),
		OutputTokens: tokensOr(resp.Usage.CompletionTokens, content),
	}
	return content, usage, nil
}

func (b *openAIBackend) buildRequest(prompt string) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if b.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: b.system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     b.model,
		Messages:  messages,
		MaxTokens: b.maxTokens,
	}
	if t, ok := validTemperature(b.temperature); ok {
		req.Temperature = float32(t)
	}
	return req
}

func (b *openAIBackend) handleError(err error) error {
	if isContextError(err) {
		return b.classifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return b.classifier.ClassifyHTTPError(apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return b.classifier.ClassifyHTTPError(reqErr.HTTPStatusCode, "request failed", err)
	}

	return NewProviderError(b.provider, ErrorTypeNetwork, 0, "request failed", err)
}

func (b *openAIBackend) Provider() string { return b.provider }

func (b *openAIBackend) Model() string { return b.model }
