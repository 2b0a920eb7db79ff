package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBodySize caps how much of an upstream response is read.
const DefaultMaxBodySize = 20 << 20

// HTTPError reports a non-2xx upstream response.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error from %s: %s", e.URL, e.Status)
}

type Response struct {
	Body        []byte
	ContentType string
	FinalURL    string
}

// Fetcher performs the single GET every connector is built on.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:      client,
		userAgent:   userAgent,
		maxBodySize: DefaultMaxBodySize,
	}
}

// Get applies defaults first and caller headers on top, so a source's own
// headers always win.
func (f *Fetcher) Get(ctx context.Context, url string, defaults, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range defaults {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > f.maxBodySize {
		return nil, fmt.Errorf("response body from %s exceeds %d bytes", url, f.maxBodySize)
	}

	return &Response{
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}
