// Package httpds serves pipeline input over plain HTTP(S). It pairs a small
// retrying fetcher with a read-only datasource.Store whose listings come from
// a "_manifest" file published next to the data.
package httpds

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	defaultBackoff = 200 * time.Millisecond
	defaultCeiling = 5 * time.Second
)

// Config configures a Client. Zero durations take the package defaults;
// Retries=0 means one attempt per object.
type Config struct {
	Timeout  time.Duration
	Retries  int
	Backoff  time.Duration
	Ceiling  time.Duration
	Insecure bool

	// Header is sent on every request, e.g. an Authorization token for a
	// private bucket gateway.
	Header http.Header

	// Transport overrides the default *http.Transport.
	Transport http.RoundTripper
}

// StatusError is returned for a final response outside 2xx other than 404.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("get %s: status %d", e.URL, e.Code)
}

// Client fetches objects with GET, retrying transport errors, 429 and 5xx
// with doubling waits.
type Client struct {
	hc      *http.Client
	retries int
	backoff time.Duration
	ceiling time.Duration
	header  http.Header

	// wait is replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = defaultCeiling
	}
	rt := cfg.Transport
	if rt == nil {
		rt = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.Insecure}, //nolint:gosec // opt-in
		}
	}
	return &Client{
		hc:      &http.Client{Timeout: cfg.Timeout, Transport: rt},
		retries: max(cfg.Retries, 0),
		backoff: cfg.Backoff,
		ceiling: cfg.Ceiling,
		header:  cfg.Header.Clone(),
		wait:    waitCtx,
	}
}

// Fetch returns the body of url. A 404 is reported as fs.ErrNotExist so the
// store can treat missing manifests like missing directories. The caller
// closes the body.
func (c *Client) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.wait(ctx, c.delay(attempt-1, lastErr)); err != nil {
				return nil, err
			}
		}
		body, retry, err := c.once(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("httpds: giving up after %d attempts: %w", c.retries+1, lastErr)
}

func (c *Client) once(ctx context.Context, url string) (io.ReadCloser, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("httpds: %w", err)
	}
	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp.Body, false, nil
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("get %s: %w", url, fs.ErrNotExist)
	case transient(resp.StatusCode):
		return nil, true, &retryAfter{StatusError{URL: url, Code: resp.StatusCode}, parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		return nil, false, &StatusError{URL: url, Code: resp.StatusCode}
	}
}

// retryAfter carries a server supplied wait alongside the status.
type retryAfter struct {
	StatusError
	after time.Duration
}

func (e *retryAfter) Unwrap() error { return &e.StatusError }

// delay is the wait before retry n (0-based): the server's Retry-After when
// given, otherwise backoff*2^n, capped at the ceiling either way.
func (c *Client) delay(n int, last error) time.Duration {
	if ra, ok := last.(*retryAfter); ok && ra.after > 0 {
		return min(ra.after, c.ceiling)
	}
	d := c.backoff << n
	if d <= 0 || d > c.ceiling {
		return c.ceiling
	}
	return d
}

func transient(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// parseRetryAfter understands the delay-seconds form only.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func waitCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
