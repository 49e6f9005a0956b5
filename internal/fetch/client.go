// Package fetch performs the single outbound GET behind extraction and image
// proxying. There are no retries: one request, one answer.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wudi/linkpreview/internal/logging"
)

// ErrTooLarge is returned when a decoded body exceeds the client's limit.
var ErrTooLarge = errors.New("response body exceeds size limit")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Options configures a Client. Zero values take defaults.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
	Transport http.RoundTripper
}

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxBytes = 10 << 20
)

// Client fetches bodies with a fixed user agent.
type Client struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
}

// New creates a Client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	transport := opts.Transport
	if transport == nil {
		transport = NewTransport(DefaultTransportConfig)
	}
	return &Client{
		http:      &http.Client{Transport: transport, Timeout: timeout},
		userAgent: opts.UserAgent,
		maxBytes:  maxBytes,
	}
}

// Get fetches rawURL and returns its decoded body. Cancelling ctx abandons
// only this request.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	body, _, err := c.Do(ctx, rawURL)
	return body, err
}

// Do is Get that also returns the response headers.
func (c *Client) Do(ctx context.Context, rawURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept-Encoding", AcceptEncoding)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.Header, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	r, release, err := Decode(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, resp.Header, err
	}
	defer release()

	body, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, resp.Header, err
	}
	if int64(len(body)) > c.maxBytes {
		return nil, resp.Header, ErrTooLarge
	}

	logging.Debug("Fetched upstream",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.String("content_encoding", resp.Header.Get("Content-Encoding")),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return body, resp.Header, nil
}
