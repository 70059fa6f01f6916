package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HealthCheckConfig probes a backend without spending tokens.
type HealthCheckConfig interface {
	HealthCheck(ctx context.Context) error
}

// httpChecker issues a GET against a backend's model-listing endpoint.
type httpChecker struct {
	client  *http.Client
	url     string
	headers map[string]string
}

// HealthCheck returns nil on any 2xx response.
func (h *httpChecker) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("provider: build health request: %w", err)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: health request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("provider: health endpoint returned %s", resp.Status)
	}
	return nil
}

// NewHealthCheck returns a zero-cost checker for cfg's backend, or nil when
// the backend has no listing endpoint worth probing (ark). A nil client gets
// a 5s timeout.
func NewHealthCheck(cfg *Config, client *http.Client) HealthCheckConfig {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	switch cfg.Backend {
	case BackendOllama:
		return &httpChecker{
			client: client,
			url:    strings.TrimRight(cfg.Ollama.Host, "/") + "/api/tags",
		}
	case BackendOpenAI:
		base := cfg.OpenAI.BaseURL
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		return &httpChecker{
			client:  client,
			url:     strings.TrimRight(base, "/") + "/models",
			headers: map[string]string{"Authorization": "Bearer " + cfg.OpenAI.APIKey},
		}
	case BackendAzure:
		q := url.Values{"api-version": {cfg.AzureOpenAI.APIVersion}}
		return &httpChecker{
			client:  client,
			url:     strings.TrimRight(cfg.AzureOpenAI.Endpoint, "/") + "/openai/models?" + q.Encode(),
			headers: map[string]string{"api-key": cfg.AzureOpenAI.APIKey},
		}
	case BackendGemini:
		return &httpChecker{
			client:  client,
			url:     "https://generativelanguage.googleapis.com/v1beta/models?pageSize=1",
			headers: map[string]string{"x-goog-api-key": cfg.Gemini.APIKey},
		}
	}
	return nil
}
