// Package http provides the shared outbound request layer: browser-like
// default headers, per-call timeouts, retry with exponential backoff, request
// pacing, and charset-aware response decoding.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/lexcorpus/lexcorpus"
)

// DefaultTimeout bounds a single attempt, including reading the body. Some
// sources serve large judgment PDFs slowly, so this is deliberately generous.
const DefaultTimeout = 60 * time.Second

// Client issues outbound requests on behalf of one source. Each source gets
// its own Client so retry policy and pacing stay per-source.
type Client struct {
	client  *http.Client
	timeout time.Duration
	retry   lexcorpus.RetryPolicy
	limiter *rate.Limiter
	headers map[string]string
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt timeout.
// Defaults to DefaultTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p lexcorpus.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithRateLimit paces requests to at most rps per second with no bursting.
// A non-positive rps leaves the client unpaced.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithHeader overrides or adds a default request header.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithLogger sets the logger used for retry warnings.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client with browser-like default headers. Several
// government sites reject obvious library user agents, so the defaults
// describe a mainstream desktop browser.
func NewClient(opts ...Option) *Client {
	c := &Client{
		timeout: DefaultTimeout,
		retry:   lexcorpus.DefaultRetryPolicy(),
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.client = &http.Client{
		Timeout: c.timeout,
	}

	return c
}

// Request describes one outbound call. Header entries override the client's
// defaults for this call only.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Get issues a GET for url with the client's retry policy.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Send(ctx, &Request{Method: http.MethodGet, URL: url})
}

// Send issues the request, retrying on transport errors, retryable statuses,
// and overload body markers with exponential backoff plus jitter. It fails
// with EUNAVAILABLE carrying the last observed error once MaxRetries or
// MaxTotalWait is exceeded. Non-retryable responses, including 404s, are
// returned untouched for the caller to interpret.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, req)
		switch {
		case err == nil && !c.shouldRetry(resp):
			return resp, nil
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		default:
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, req.URL)
			if resp.StatusCode == http.StatusOK {
				lastErr = fmt.Errorf("overload marker in response body for %s", req.URL)
			}
		}

		if attempt >= c.retry.MaxRetries || time.Since(start) >= c.retry.MaxTotalWait {
			return nil, lexcorpus.Errorf(lexcorpus.EUNAVAILABLE, "retries exhausted for %s: %v", req.URL, lastErr)
		}

		delay := c.backoff(attempt)
		c.logger.Debug("retrying request",
			"url", req.URL,
			"attempt", attempt+2,
			"delay", delay,
			"cause", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	hreq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, lexcorpus.Errorf(lexcorpus.EINVALID, "invalid request for %s: %v", req.URL, err)
	}
	for k, v := range c.headers {
		hreq.Header.Set(k, v)
	}
	for k, vs := range req.Header {
		hreq.Header.Del(k)
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		// A truncated read is a transport failure, retried like one.
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       b,
		URL:        resp.Request.URL.String(),
	}, nil
}

// shouldRetry reports whether the response is a retryable status or an
// overload error disguised as a 200.
func (c *Client) shouldRetry(resp *Response) bool {
	if c.retry.Retryable(resp.StatusCode) {
		return true
	}
	if resp.StatusCode == http.StatusOK {
		for _, marker := range c.retry.RetryableBodyMarkers {
			if bytes.Contains(resp.Body, []byte(marker)) {
				return true
			}
		}
	}
	return false
}

// backoff computes the delay before the next attempt: exponential growth
// capped at MaxDelay, half fixed and half jittered so concurrent retries
// against a struggling source spread out.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.retry.BaseDelay
	for i := 0; i < attempt && d < c.retry.MaxDelay; i++ {
		d *= 2
	}
	if d > c.retry.MaxDelay {
		d = c.retry.MaxDelay
	}
	if d < 2 {
		return d
	}
	return d/2 + rand.N(d/2)
}
