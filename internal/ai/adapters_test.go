package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

var testPrompt = Prompt{System: "Eres un periodista.", User: "Escribe sobre Claude AI."}

func TestGroqProvider_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer groq-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"title\":\"ok\"}"}}]}`)
	}))
	defer srv.Close()

	p := NewGroqProvider("groq-key", "llama-3.1-8b-instant")
	p.endpoint = srv.URL

	out, err := p.Generate(context.Background(), testPrompt)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if out != `{"title":"ok"}` {
		t.Errorf("Generate() = %q", out)
	}
	if got.Model != "llama-3.1-8b-instant" {
		t.Errorf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("messages = %+v, want system then user", got.Messages)
	}
}

func TestGroqProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	p := NewGroqProvider("k", "m")
	p.endpoint = srv.URL

	if _, err := p.Generate(context.Background(), testPrompt); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCohereProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		io.WriteString(w, `{"message":{"role":"assistant","content":[{"type":"text","text":"{\"title\":"},{"type":"text","text":"\"ok\"}"}]}}`)
	}))
	defer srv.Close()

	p := NewCohereProvider("cohere-key", "command-r")
	p.endpoint = srv.URL

	out, err := p.Generate(context.Background(), testPrompt)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if out != `{"title":"ok"}` {
		t.Errorf("Generate() = %q, want concatenated text blocks", out)
	}
}

func TestHuggingFaceProvider_Generate(t *testing.T) {
	var req hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/mistralai/Mistral-7B-Instruct-v0.3") {
			t.Errorf("path = %q, want model suffix", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&req)
		io.WriteString(w, `[{"generated_text":"La inteligencia artificial avanza."}]`)
	}))
	defer srv.Close()

	p := NewHuggingFaceProvider("hf-key", "mistralai/Mistral-7B-Instruct-v0.3")
	p.baseURL = srv.URL + "/models/"

	out, err := p.Generate(context.Background(), testPrompt)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if out != "La inteligencia artificial avanza." {
		t.Errorf("Generate() = %q", out)
	}
	if req.Parameters.MaxNewTokens != 600 || req.Parameters.ReturnFullText {
		t.Errorf("parameters = %+v", req.Parameters)
	}
	if !strings.Contains(req.Inputs, testPrompt.System) || !strings.Contains(req.Inputs, testPrompt.User) {
		t.Errorf("inputs should carry both prompt parts, got %q", req.Inputs)
	}
}

func TestAdapters_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":"rate limited"}`)
	}))
	defer srv.Close()

	groq := NewGroqProvider("k", "m")
	groq.endpoint = srv.URL
	cohere := NewCohereProvider("k", "m")
	cohere.endpoint = srv.URL
	hf := NewHuggingFaceProvider("k", "m")
	hf.baseURL = srv.URL + "/"

	for name, g := range map[string]Generator{Groq: groq, Cohere: cohere, HuggingFace: hf} {
		t.Run(name, func(t *testing.T) {
			_, err := g.Generate(context.Background(), testPrompt)
			var httpErr *ProviderHTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("err = %v, want *ProviderHTTPError", err)
			}
			if httpErr.Status != http.StatusTooManyRequests {
				t.Errorf("Status = %d, want 429", httpErr.Status)
			}
			if httpErr.Provider != name {
				t.Errorf("Provider = %q, want %q", httpErr.Provider, name)
			}
			if !strings.Contains(httpErr.Body, "rate limited") {
				t.Errorf("Body = %q", httpErr.Body)
			}
		})
	}
}

func TestAdapters_ErrorBodyCutOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxErrorBody-1) + strings.Repeat("é", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, body)
	}))
	defer srv.Close()

	groq := NewGroqProvider("k", "m")
	groq.endpoint = srv.URL

	_, err := groq.Generate(context.Background(), testPrompt)
	var httpErr *ProviderHTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *ProviderHTTPError", err)
	}
	if !utf8.ValidString(httpErr.Body) {
		t.Errorf("Body ends in a split rune: %q", httpErr.Body[len(httpErr.Body)-4:])
	}
	if len(httpErr.Body) != maxErrorBody-1 {
		t.Errorf("len(Body) = %d, want %d", len(httpErr.Body), maxErrorBody-1)
	}
}

func TestGeminiProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "gemini-1.5-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"title\":\"ok\"}"}],"role":"model"}}]}`)
	}))
	defer srv.Close()

	p, err := newGeminiProvider(context.Background(), "gemini-key", "gemini-1.5-flash", srv.URL+"/")
	if err != nil {
		t.Fatalf("newGeminiProvider() error: %v", err)
	}

	out, err := p.Generate(context.Background(), testPrompt)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if out != `{"title":"ok"}` {
		t.Errorf("Generate() = %q", out)
	}
}

func TestGeminiProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer srv.Close()

	p, err := newGeminiProvider(context.Background(), "gemini-key", "gemini-1.5-flash", srv.URL+"/")
	if err != nil {
		t.Fatalf("newGeminiProvider() error: %v", err)
	}

	if _, err := p.Generate(context.Background(), testPrompt); err == nil {
		t.Fatal("expected error for 429 response")
	}
}
