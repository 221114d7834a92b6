// Package client is a small HTTP client for the pbwatch API, used by the
// command line tools.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mkurata/pbwatch/internal/domain"
)

const maxResponseBytes = 1 << 20

// Client talks to a pbwatch API server.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New returns a client for the given base URL. An empty apiKey is fine
// when the server runs without auth.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) resolve(path string) string {
	return c.BaseURL + path
}

func (c *Client) applyHeaders(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
}

// Monitor POSTs {"url": target} to /api/monitor and returns the raw
// response body. The body comes back even on non-2xx statuses; an error
// is returned only when the request itself fails.
func (c *Client) Monitor(ctx context.Context, target string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"url": target})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/api/monitor"), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

// AddWatch registers a product URL on the server's watchlist.
func (c *Client) AddWatch(ctx context.Context, target string) (*domain.WatchItem, error) {
	payload, err := json.Marshal(map[string]string{"url": target})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/api/watchlist"), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out struct {
		Status string           `json:"status"`
		Item   *domain.WatchItem `json:"item"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Item, nil
}

// Watchlist fetches the registered items.
func (c *Client) Watchlist(ctx context.Context) ([]*domain.WatchItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve("/api/watchlist"), nil)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var items []*domain.WatchItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return items, nil
}

// ImportCSV uploads CSV content to the bulk-registration endpoint.
func (c *Client) ImportCSV(ctx context.Context, filename string, r io.Reader) (*domain.ImportReport, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/api/watchlist/csv"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.applyHeaders(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var report domain.ImportReport
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &report, nil
}

// apiError converts a non-2xx response into an error, preferring the
// server's {"error": ...} message when present.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status, e.Error)
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}
