package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"PaperRadar/internal/ports"
)

const userAgent = "PaperRadar/1.0"

// maxBodyBytes caps a single feed or listing download.
const maxBodyBytes = 8 << 20

// HTTPFetcher downloads feed and listing-page content.
type HTTPFetcher struct {
	client *http.Client
}

var _ ports.Fetcher = (*HTTPFetcher)(nil)

// New wires an HTTP client; nil selects a default with a 20s timeout.
func New(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

// Fetch performs a GET and returns the raw body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", url, resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return raw, nil
}
