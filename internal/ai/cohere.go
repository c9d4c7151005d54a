package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Compile-time interface check.
var _ Generator = (*CohereProvider)(nil)

const cohereAPIURL = "https://api.cohere.com/v2/chat"

// CohereProvider implements Generator using the Cohere v2 Chat API.
type CohereProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewCohereProvider creates a CohereProvider with a 60-second timeout HTTP
// client.
func NewCohereProvider(apiKey, model string) *CohereProvider {
	return &CohereProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: cohereAPIURL,
		client:   newHTTPClient(),
	}
}

// cohereRequest is the request body for the Cohere v2 Chat API.
type cohereRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

// cohereResponse is the response body from the Cohere v2 Chat API. The
// assistant message is a list of content blocks.
type cohereResponse struct {
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// Generate returns the concatenated text blocks of the assistant message.
func (p *CohereProvider) Generate(ctx context.Context, prompt Prompt) (string, error) {
	reqBody := cohereRequest{
		Model:       p.model,
		Messages:    chatMessages(prompt),
		Temperature: 0.8,
	}

	var apiResp cohereResponse
	err := postJSON(ctx, p.client, Cohere, p.endpoint,
		map[string]string{
			"Authorization": "Bearer " + p.apiKey,
			"Accept":        "application/json",
		},
		reqBody, &apiResp)
	if err != nil {
		return "", fmt.Errorf("cohere generate: %w", err)
	}

	var b strings.Builder
	for _, block := range apiResp.Message.Content {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("cohere generate: empty response: no text blocks returned")
	}
	return b.String(), nil
}
