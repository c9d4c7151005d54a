package ai

import (
	"context"
	"errors"
	"fmt"
)

// Errors returned by the selection and parsing steps.
var (
	// ErrNoProviderConfigured means no provider in the registry has a
	// credential.
	ErrNoProviderConfigured = errors.New("no AI provider configured")

	// ErrNoJSON means a structured provider answered without a JSON object.
	ErrNoJSON = errors.New("no JSON object in provider response")

	// ErrMissingTitle means the parsed object carried no title.
	ErrMissingTitle = errors.New("generated post has no title")

	// ErrContentTooShort means the content is empty or below the minimum
	// character count.
	ErrContentTooShort = errors.New("generated content too short")

	// ErrWordCountLow means the recomputed word count is below the minimum.
	// It asks the caller to retry rather than reporting a hard failure.
	ErrWordCountLow = errors.New("generated content word count below minimum")
)

// ProviderHTTPError reports a non-2xx answer from a provider endpoint.
type ProviderHTTPError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderHTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status code %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status code %d: %s", e.Provider, e.Status, e.Body)
}

// Prompt is a system/user prompt pair. Providers without a system role
// receive both parts concatenated.
type Prompt struct {
	System string
	User   string
}

// Generator turns a prompt into raw provider text with exactly one HTTP
// request. Implementations never retry.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Provider names.
const (
	Gemini      = "gemini"
	Groq        = "groq"
	Cohere      = "cohere"
	HuggingFace = "huggingface"
)

// NewGenerator creates the adapter for the given descriptor.
func NewGenerator(ctx context.Context, d Descriptor) (Generator, error) {
	switch d.Name {
	case Gemini:
		return NewGeminiProvider(ctx, d.APIKey, d.Model)
	case Groq:
		return NewGroqProvider(d.APIKey, d.Model), nil
	case Cohere:
		return NewCohereProvider(d.APIKey, d.Model), nil
	case HuggingFace:
		return NewHuggingFaceProvider(d.APIKey, d.Model), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", d.Name)
	}
}
