// Package api is a small JSON client for the demo REST API
// (GET/POST/PATCH/DELETE over a fixed base URL).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// maxErrorBody caps how much of a failed response is kept in StatusError.
const maxErrorBody = 4 << 10

type Client struct {
	base    *url.URL
	http    *http.Client
	log     *zap.Logger
	breaker *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithBreaker fails fast after repeated transport errors or 5xx responses.
// 4xx responses never trip it.
func WithBreaker(name string) Option {
	return func(c *Client) {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.log.Warn("api breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{},
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

// URL builds the absolute URL for path segments and an optional query.
func (c *Client) URL(segments []string, q url.Values) string {
	u := c.base.JoinPath(segments...)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// List fetches a collection. segments is the path below the base URL
// (["posts"] or ["posts", "1", "comments"]).
func (c *Client) List(ctx context.Context, segments []string, q url.Values, out any) error {
	return c.do(ctx, http.MethodGet, segments, q, nil, out, true)
}

func (c *Client) Get(ctx context.Context, resource string, id int, out any) error {
	return c.do(ctx, http.MethodGet, []string{resource, strconv.Itoa(id)}, nil, nil, out, true)
}

func (c *Client) Create(ctx context.Context, resource string, body any, out any) error {
	return c.do(ctx, http.MethodPost, []string{resource}, nil, body, out, true)
}

// Patch sends a partial update. Any 2xx is success; the response body is ignored.
func (c *Client) Patch(ctx context.Context, resource string, id int, body any) error {
	return c.do(ctx, http.MethodPatch, []string{resource, strconv.Itoa(id)}, nil, body, nil, false)
}

// Delete removes one record. Any 2xx is success; the response body is ignored.
func (c *Client) Delete(ctx context.Context, resource string, id int) error {
	return c.do(ctx, http.MethodDelete, []string{resource, strconv.Itoa(id)}, nil, nil, nil, false)
}

func (c *Client) do(ctx context.Context, method string, segments []string, q url.Values, body any, out any, wantBody bool) error {
	if c.breaker == nil {
		return c.roundTrip(ctx, method, segments, q, body, out, wantBody)
	}
	var callErr error
	_, err := c.breaker.Execute(func() (interface{}, error) {
		err := c.roundTrip(ctx, method, segments, q, body, out, wantBody)
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode < 500 {
			// Client errors are the caller's problem, not the remote's health.
			callErr = err
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s %s: %w", method, c.URL(segments, q), err)
		}
		return err
	}
	return callErr
}

func (c *Client) roundTrip(ctx context.Context, method string, segments []string, q url.Values, body any, out any, wantBody bool) error {
	target := c.URL(segments, q)

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, target, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, target, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("api request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.String("requestId", reqID),
			zap.Error(err),
		)
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("requestId", reqID),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn("api request rejected",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
			zap.String("requestId", reqID),
		)
		return &StatusError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       string(b),
			RequestID:  reqID,
		}
	}

	if !wantBody || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, target, err)
	}
	return nil
}
