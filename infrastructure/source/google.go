package source

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const (
	// GoogleDefaultModel is used when no model is configured.
	GoogleDefaultModel = "gemini-2.0-flash"
)

func init() {
	RegisterBackendFactory("google", newGoogleBackend)
}

// googleBackend implements Backend for the Gemini API.
type googleBackend struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature *float64
	system      string
	classifier  *ErrorClassifier
}

func newGoogleBackend(cfg Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		validated, err := ValidateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		clientConfig.HTTPOptions.BaseURL = validated
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, NewProviderError("google", ErrorTypeUnknown, 0, "failed to create client", err)
	}

	return &googleBackend{
		client:      client,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		system:      cfg.System,
		classifier:  &ErrorClassifier{Provider: "google"},
	}, nil
}

// Generate sends prompt as user content. The Gemini API has no system role
// in this request shape, so a system prompt is prepended to the text.
func (b *googleBackend) Generate(ctx context.Context, prompt string) (string, Usage, error) {
	text := prompt
	if b.system != "" {
		text = b.system + "\n\n" + prompt
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	config := &genai.GenerateContentConfig{}
	if t, ok := validTemperature(b.temperature); ok {
		config.Temperature = genai.Ptr(float32(t))
	}
	if b.maxTokens > 0 {
		config.MaxOutputTokens = int32(b.maxTokens)
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, config)
	if err != nil {
		return "", Usage{}, b.handleError(err)
	}

	content := resp.Text()
	if content == "" {
		return "", Usage{}, NewProviderError("google", ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	var usage Usage
	if md := resp.UsageMetadata; md != nil {
		usage.InputTokens = int(md.PromptTokenCount)
		usage.OutputTokens = int(md.CandidatesTokenCount)
	}
	usage.InputTokens = tokensOr(usage.InputTokens, text)
	usage.OutputTokens = tokensOr(usage.OutputTokens, content)
	return content, usage, nil
}

func (b *googleBackend) handleError(err error) error {
	if isContextError(err) {
		return b.classifier.ClassifyContextError(err)
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		if isContentPolicyMessage(genaiErr.Message) {
			return NewProviderError("google", ErrorTypeContentPolicy, genaiErr.Code, "request blocked by safety filters", err)
		}
		return b.classifier.ClassifyHTTPError(genaiErr.Code, genaiErr.Message, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		if isContentPolicyError(apiErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code, "request blocked by safety filters", err)
		}
		return b.classifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	return NewProviderError("google", ErrorTypeNetwork, 0, "request failed", err)
}

func isContentPolicyError(apiErr *googleapi.Error) bool {
	if isContentPolicyMessage(apiErr.Message) {
		return true
	}
	for _, e := range apiErr.Errors {
		if strings.EqualFold(e.Reason, "SAFETY") {
			return true
		}
	}
	return false
}

func isContentPolicyMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "safety") || strings.Contains(msg, "blocked")
}

func (b *googleBackend) Provider() string { return "google" }

func (b *googleBackend) Model() string { return b.model }
