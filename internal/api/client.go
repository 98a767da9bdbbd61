// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Configuration constants for the backend client.
const (
	// DefaultTimeout bounds every non-streaming request.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps JSON and audio bodies read into memory.
	MaxResponseSize = 10 * 1024 * 1024

	// maxErrorBody caps how much of an error body is read for its message.
	maxErrorBody = 64 * 1024

	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-ID"

	userAgent = "niti/1.0"
)

// Client talks to one backend origin. Configure it with the With* methods
// before first use; after that it is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	// streamClient has no timeout; streamed replies end on EOF or
	// cancellation.
	streamClient *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
	newID        func() string
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", baseURL)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &Client{
		baseURL:      u,
		httpClient:   &http.Client{Transport: transport, Timeout: DefaultTimeout},
		streamClient: &http.Client{Transport: transport},
		limiter:      rate.NewLimiter(rate.Inf, 0),
		logger:       zap.NewNop(),
		newID:        func() string { return uuid.New().String() },
	}, nil
}

// WithCookieJar sets the jar that carries session_id and user_session_id.
func (c *Client) WithCookieJar(jar http.CookieJar) *Client {
	c.httpClient.Jar = jar
	c.streamClient.Jar = jar
	return c
}

// WithTimeout sets the timeout for non-streaming requests.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithRateLimit paces outgoing requests. rps <= 0 disables pacing.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithLogger sets the logger. nil keeps the no-op logger.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger.Named("api")
	}
	return c
}

// WithTransport replaces the HTTP transport of both clients.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.httpClient.Transport = rt
	c.streamClient.Transport = rt
	return c
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Jar returns the configured cookie jar, if any.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// request describes one call to the backend.
type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	accept      string
	stream      bool
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// send performs r and returns the response for any 2xx status. Other
// statuses are drained, closed and returned as *StatusError.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", r.op, err)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(r.path), r.body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", r.op, err)
	}
	reqID := c.newID()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("User-Agent", userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}

	hc := c.httpClient
	if r.stream {
		hc = c.streamClient
	}

	log := c.logger.With(
		zap.String("op", r.op),
		zap.String("request_id", reqID),
	)
	log.Debug("api request", zap.String("method", r.method), zap.String("path", r.path))

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		log.Warn("api transport error", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("%s: %w", r.op, err)
	}
	log.Debug("api response", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		se := &StatusError{
			Op:        r.op,
			Status:    resp.StatusCode,
			Message:   errorMessage(resp.Body),
			RequestID: reqID,
		}
		log.Warn("api error response", zap.Int("status", se.Status), zap.String("message", se.Message))
		return nil, se
	}
	return resp, nil
}

// errorMessage extracts {"error": "..."} from an error body, falling back
// to the trimmed text.
func errorMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return strings.TrimSpace(string(data))
}

// readResponse reads a success body with a size limit.
func readResponse(op string, resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%s: response exceeded maximum size of %d bytes", op, MaxResponseSize)
	}
	return body, nil
}

// doJSON sends in (if non-nil) as JSON and decodes the reply into out.
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out interface{}) error {
	r := request{op: op, method: method, path: path, accept: "application/json"}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		r.body = bytes.NewReader(data)
		r.contentType = "application/json"
	}

	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readResponse(op, resp)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
