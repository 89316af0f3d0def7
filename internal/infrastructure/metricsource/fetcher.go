// Package metricsource fetches raw bodies from metric and alarm URLs.
package metricsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultMaxBytes = 4 * 1024 * 1024

// StatusError is returned for non-2xx answers.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("metric source %s returned status %d", e.URL, e.Status)
}

// HTTPFetcher implements port.MetricSource. Requests are sent without
// credentials.
type HTTPFetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build metric request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metric source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.maxBytes))
		return nil, &StatusError{URL: url, Status: resp.StatusCode}
	}

	lr := io.LimitReader(resp.Body, f.maxBytes+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("read metric source: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}
