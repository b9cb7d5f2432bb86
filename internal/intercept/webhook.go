package intercept

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lucasmbraga/taxflow/pkg/ports"
)

// WebhookReporter ships error reports to an HTTP sink as JSON.
type WebhookReporter struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewWebhookReporter creates a reporter posting to the given URL. The API
// key, when set, is sent as the x-api-key header.
func NewWebhookReporter(url, apiKey string) *WebhookReporter {
	return &WebhookReporter{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{},
	}
}

// Report delivers one error report.
func (w *WebhookReporter) Report(ctx context.Context, rep ports.ErrorReport) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal error report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("x-api-key", w.apiKey)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("deliver error report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("error sink answered HTTP %d", resp.StatusCode)
	}
	return nil
}
