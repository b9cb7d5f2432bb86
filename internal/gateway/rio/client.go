// Package rio implements the municipal tax gateway against the city's HTTP
// API. Responses are mapped onto the workflow's error taxonomy: credential
// rejections become domain.ErrAuthentication, transient failures (5xx,
// timeouts, connection errors) become domain.ErrServiceUnavailable, and
// not-found answers collapse to a nil result.
package rio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lucasmbraga/taxflow/internal/logging"
	"github.com/lucasmbraga/taxflow/pkg/domain"
)

const defaultTimeout = 30 * time.Second

// Client calls the municipal IPTU API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// New creates a live gateway client.
func New(baseURL, apiKey string, opts ...Option) *Client {
	cl := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// get performs one API call and decodes the body into out. A nil return
// with found=false means the upstream answered not-found.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (found bool, err error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and connection failures are transient.
		return false, fmt.Errorf("request %s failed: %v: %w", path, err, domain.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, fmt.Errorf("request %s rejected (HTTP %d): %w", path, resp.StatusCode, domain.ErrAuthentication)
	case resp.StatusCode >= 500:
		return false, fmt.Errorf("upstream failure on %s (HTTP %d): %w", path, resp.StatusCode, domain.ErrServiceUnavailable)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("unexpected status %d on %s", resp.StatusCode, path)
	}

	if out == nil {
		return true, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode %s response: %w", path, err)
	}
	return true, nil
}

// LookupProperty fetches registry metadata for a property.
func (c *Client) LookupProperty(ctx context.Context, propertyID string) (*domain.PropertyInfo, error) {
	var info domain.PropertyInfo
	found, err := c.get(ctx, "/iptu/properties/"+url.PathEscape(propertyID), nil, &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

// ListGuides lists the payment guides for a property and fiscal year.
func (c *Client) ListGuides(ctx context.Context, propertyID string, year int) (*domain.GuideSet, error) {
	q := url.Values{"exercicio": {strconv.Itoa(year)}}
	var set domain.GuideSet
	found, err := c.get(ctx, "/iptu/properties/"+url.PathEscape(propertyID)+"/guides", q, &set)
	if err != nil || !found {
		return nil, err
	}
	if len(set.Guides) == 0 {
		return nil, nil
	}
	return &set, nil
}

// ListInstallments lists the installments of one guide.
func (c *Client) ListInstallments(ctx context.Context, propertyID string, year int, guideNumber string) (*domain.InstallmentSet, error) {
	q := url.Values{"exercicio": {strconv.Itoa(year)}}
	path := "/iptu/properties/" + url.PathEscape(propertyID) + "/guides/" + url.PathEscape(guideNumber) + "/installments"
	var set domain.InstallmentSet
	found, err := c.get(ctx, path, q, &set)
	if err != nil || !found {
		return nil, err
	}
	return &set, nil
}

// GenerateSlip asks the upstream to emit payment slips.
func (c *Client) GenerateSlip(ctx context.Context, req domain.SlipRequest) (*domain.SlipBatch, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal slip request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/iptu/slips", strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("slip generation failed: %v: %w", err, domain.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("slip generation rejected (HTTP %d): %w", resp.StatusCode, domain.ErrAuthentication)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("upstream failure on slip generation (HTTP %d): %w", resp.StatusCode, domain.ErrServiceUnavailable)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return nil, fmt.Errorf("unexpected status %d on slip generation", resp.StatusCode)
	}

	var batch domain.SlipBatch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode slip response: %w", err)
	}
	return &batch, nil
}

// DownloadSlipDocument fetches the printable document for a slip.
func (c *Client) DownloadSlipDocument(ctx context.Context, slipID string) ([]byte, error) {
	u := c.baseURL + "/iptu/slips/" + url.PathEscape(slipID) + "/document"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("document download failed: %v: %w", err, domain.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("document download rejected (HTTP %d): %w", resp.StatusCode, domain.ErrAuthentication)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("upstream failure on document download (HTTP %d): %w", resp.StatusCode, domain.ErrServiceUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d on document download", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// LookupActiveDebt fetches active-debt information for a property.
func (c *Client) LookupActiveDebt(ctx context.Context, propertyID string) (*domain.DebtInfo, error) {
	var debt domain.DebtInfo
	found, err := c.get(ctx, "/divida-ativa/properties/"+url.PathEscape(propertyID), nil, &debt)
	if err != nil || !found {
		return nil, err
	}
	if debt.Empty() {
		return nil, nil
	}
	return &debt, nil
}
