// Package deployapi is the HTTP client for the deploy backend's /envs
// resource tree and the autoscaling group endpoints.
package deployapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dreschagin/deploy-board/internal/application/identity"
	"github.com/dreschagin/deploy-board/pkg/logger"
)

const defaultMaxResponseBytes = 8 * 1024 * 1024

var (
	// ErrNotFound matches an *APIError carrying HTTP 404.
	ErrNotFound = errors.New("not found")
	// ErrMissingToken is returned when the request context has no backend token.
	ErrMissingToken = errors.New("missing backend token")
	// ErrMissingIdentifier is returned before any I/O when a required path
	// identifier is empty.
	ErrMissingIdentifier = errors.New("missing path identifier")
)

// APIError is a non-2xx backend answer, kept verbatim.
type APIError struct {
	Method      string
	Path        string
	Status      int
	ContentType string
	Body        []byte
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(string(e.Body))
	if len(msg) > 256 {
		msg = msg[:256] + "..."
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("deploy api %s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type ClientConfig struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
	// OnError, when set, observes every failed call: the HTTP status, or 0
	// when no response arrived.
	OnError func(status int)
}

// Client issues authenticated JSON requests against one backend base URL.
// It is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	maxBytes int64
	onError  func(status int)
	logger   *logger.Logger
}

// NewClient creates a backend client. httpClient may be shared between
// clients; nil means a dedicated client with cfg.Timeout.
func NewClient(cfg ClientConfig, httpClient *http.Client, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:     httpClient,
		timeout:  cfg.Timeout,
		maxBytes: cfg.MaxResponseBytes,
		onError:  cfg.OnError,
		logger:   log,
	}
}

// Do performs one call and returns the raw response body. Non-2xx answers
// come back as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	token, ok := identity.TokenFrom(ctx)
	if !ok {
		return nil, ErrMissingToken
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
	}

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observeError(0)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := readLimited(resp.Body, c.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	c.logger.Debug("Deploy API call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.observeError(resp.StatusCode)
		return nil, &APIError{
			Method:      method,
			Path:        path,
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        data,
		}
	}

	return data, nil
}

// DoJSON performs one call and decodes a non-empty response into out.
func (c *Client) DoJSON(ctx context.Context, method, path string, params url.Values, body, out any) error {
	data, err := c.Do(ctx, method, path, params, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) observeError(status int) {
	if c.onError != nil {
		c.onError(status)
	}
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(b) == 0 {
			return nil, nil
		}
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}
