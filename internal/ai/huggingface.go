package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Compile-time interface check.
var _ Generator = (*HuggingFaceProvider)(nil)

const huggingFaceAPIURL = "https://api-inference.huggingface.co/models/"

// HuggingFaceProvider implements Generator using the Hugging Face Inference
// API text-generation task. Its models answer in prose, so the parser
// synthesizes a draft when no JSON object comes back.
type HuggingFaceProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewHuggingFaceProvider creates a HuggingFaceProvider with a 60-second
// timeout HTTP client.
func NewHuggingFaceProvider(apiKey, model string) *HuggingFaceProvider {
	return &HuggingFaceProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: huggingFaceAPIURL,
		client:  newHTTPClient(),
	}
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfResponse []struct {
	GeneratedText string `json:"generated_text"`
}

// Generate returns the generated_text of the first result.
func (p *HuggingFaceProvider) Generate(ctx context.Context, prompt Prompt) (string, error) {
	inputs := prompt.User
	if prompt.System != "" {
		inputs = prompt.System + "\n\n" + prompt.User
	}

	reqBody := hfRequest{
		Inputs: inputs,
		Parameters: hfParameters{
			MaxNewTokens:   600,
			Temperature:    0.8,
			ReturnFullText: false,
		},
	}

	var apiResp hfResponse
	err := postJSON(ctx, p.client, HuggingFace, p.baseURL+p.model,
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		reqBody, &apiResp)
	if err != nil {
		return "", fmt.Errorf("huggingface generate: %w", err)
	}

	if len(apiResp) == 0 || strings.TrimSpace(apiResp[0].GeneratedText) == "" {
		return "", fmt.Errorf("huggingface generate: empty response: no generated text")
	}
	return apiResp[0].GeneratedText, nil
}
