package ai

import (
	"context"
	"fmt"
	"net/http"
)

// Compile-time interface check.
var _ Generator = (*GroqProvider)(nil)

const groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"

// GroqProvider implements Generator using Groq's OpenAI-compatible Chat
// Completions API.
type GroqProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGroqProvider creates a GroqProvider with a 60-second timeout HTTP
// client.
func NewGroqProvider(apiKey, model string) *GroqProvider {
	return &GroqProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: groqAPIURL,
		client:   newHTTPClient(),
	}
}

// chatRequest is the request body for OpenAI-style chat completions.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage is a single message in a chat request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response body of OpenAI-style chat completions.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt as a system and a user message and returns the
// content of the first choice.
func (p *GroqProvider) Generate(ctx context.Context, prompt Prompt) (string, error) {
	reqBody := chatRequest{
		Model:       p.model,
		Messages:    chatMessages(prompt),
		Temperature: 0.8,
		MaxTokens:   1024,
	}

	var apiResp chatResponse
	err := postJSON(ctx, p.client, Groq, p.endpoint,
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		reqBody, &apiResp)
	if err != nil {
		return "", fmt.Errorf("groq generate: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("groq generate: empty response: no choices returned")
	}
	return apiResp.Choices[0].Message.Content, nil
}

func chatMessages(prompt Prompt) []chatMessage {
	var msgs []chatMessage
	if prompt.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: prompt.System})
	}
	return append(msgs, chatMessage{Role: "user", Content: prompt.User})
}
