package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/common"
)

// idempotencyHeader carries the per-attempt token the server de-duplicates on.
const idempotencyHeader = "Idempotency-Key"

// HTTPClient talks JSON to the quote REST API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client for the given base URL, e.g.
// "https://api.example.com". A zero timeout falls back to 15s.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateQuote(ctx context.Context, payload *QuotePayload, attemptKey string) (*QuotePayload, error) {
	return c.send(ctx, http.MethodPost, c.baseURL+"/api/quotes", payload, attemptKey)
}

func (c *HTTPClient) UpdateQuote(ctx context.Context, payload *QuotePayload, attemptKey string) (*QuotePayload, error) {
	return c.send(ctx, http.MethodPut, c.baseURL+"/api/quotes/"+payload.ID, payload, attemptKey)
}

func (c *HTTPClient) DeleteQuote(ctx context.Context, quoteID string, baseVersion int64, attemptKey string) error {
	url := fmt.Sprintf("%s/api/quotes/%s?version=%d", c.baseURL, quoteID, baseVersion)
	_, err := c.send(ctx, http.MethodDelete, url, nil, attemptKey)
	return err
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping status %s", common.ErrTransport, resp.Status)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, url string, payload *QuotePayload, attemptKey string) (*QuotePayload, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if attemptKey != "" {
		req.Header.Set(idempotencyHeader, attemptKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if resp.StatusCode == http.StatusNoContent {
			return nil, nil
		}
		var out QuotePayload
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: decoding response: %v", common.ErrTransport, err)
		}
		return &out, nil

	case resp.StatusCode == http.StatusConflict:
		return nil, decodeConflict(resp.Body)

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s: %s", common.ErrRejected, resp.Status, string(b))

	default:
		// 5xx and anything unexpected is retryable.
		return nil, fmt.Errorf("%w: %s", common.ErrTransport, resp.Status)
	}
}

func decodeConflict(body io.Reader) error {
	var server QuotePayload
	if err := json.NewDecoder(body).Decode(&server); err != nil {
		// Body missing or unreadable: surface the mismatch without a record;
		// the detector will hold the item rather than guess.
		return &VersionMismatchError{}
	}
	return &VersionMismatchError{ServerVersion: server.Version, ServerQuote: &server}
}
