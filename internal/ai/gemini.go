package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Compile-time interface check.
var _ Generator = (*GeminiProvider)(nil)

// GeminiProvider implements Generator with the Gemini API through the
// google.golang.org/genai client, asking for a JSON response.
type GeminiProvider struct {
	model  string
	client *genai.Client
}

// NewGeminiProvider creates a GeminiProvider for the Gemini API backend.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	return newGeminiProvider(ctx, apiKey, model, "")
}

// newGeminiProvider lets tests point the client at another base URL.
func newGeminiProvider(ctx context.Context, apiKey, model, baseURL string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  newHTTPClient(),
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{model: model, client: client}, nil
}

// Generate calls generateContent once and returns the response text.
func (p *GeminiProvider) Generate(ctx context.Context, prompt Prompt) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.8),
		ResponseMIMEType: "application/json",
	}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	slog.Debug("calling provider API", "provider", Gemini, "model", p.model)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt.User), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("gemini generate: %w", &ProviderHTTPError{
				Provider: Gemini,
				Status:   apiErr.Code,
				Body:     apiErr.Message,
			})
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini generate: empty response: no candidates returned")
	}
	return text, nil
}
