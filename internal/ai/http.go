package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"
)

// requestTimeout bounds a single provider call.
const requestTimeout = 60 * time.Second

// maxErrorBody caps how much of an error body is kept in ProviderHTTPError.
const maxErrorBody = 512

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// postJSON sends reqBody as JSON to url with the given headers and decodes a
// 2xx response into out. Non-2xx answers become *ProviderHTTPError.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	slog.Debug("calling provider API", "provider", provider, "url", url)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderHTTPError{Provider: provider, Status: resp.StatusCode, Body: errorSnippet(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// errorSnippet returns at most maxErrorBody bytes of body, cut on a rune
// boundary.
func errorSnippet(body []byte) string {
	if len(body) <= maxErrorBody {
		return string(body)
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut])
}
