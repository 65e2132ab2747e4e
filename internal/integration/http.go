package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/magma/magma-sub003/internal/config"
)

// HTTPForwarder posts reports as JSON to a webhook
type HTTPForwarder struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHTTPForwarder creates an HTTP forwarder
func NewHTTPForwarder(cfg config.HTTPConfig) *HTTPForwarder {
	return &HTTPForwarder{
		url:     cfg.URL,
		headers: cfg.Headers,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name implements Forwarder
func (f *HTTPForwarder) Name() string { return "http" }

// Forward implements Forwarder
func (f *HTTPForwarder) Forward(ctx context.Context, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("post %s: status %d", f.url, resp.StatusCode)
	}
	return nil
}

// Close implements Forwarder
func (f *HTTPForwarder) Close() {
	f.client.CloseIdleConnections()
}
