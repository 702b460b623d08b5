// Package remote talks to the DAYS Ahmedabad directory API.
//
// Client.Search is the suggestion path: it never fails and degrades to an
// empty response on any error. TrySearch exposes the classified error for
// callers that want to react to it. The listing endpoints (Categories,
// CategoryMerchants, Merchants, MerchantBranches, Merchant, Category) return
// errors normally.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/panchamjain/suvidha/pkg/log"
	"github.com/panchamjain/suvidha/pkg/search"
)

const (
	DefaultBaseURL = "https://www.daysahmedabad.com"
	DefaultTimeout = 30 * time.Second
)

var (
	ErrTransport         = errors.New("transport error")
	ErrStatus            = errors.New("unexpected status")
	ErrDecode            = errors.New("invalid JSON")
	ErrUnrecognizedShape = errors.New("unrecognized response shape")
)

// Cache stores normalized search responses by query.
type Cache interface {
	Get(ctx context.Context, query string) (search.Response, error)
	Set(ctx context.Context, query string, resp search.Response) error
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	tracerProvider trace.TracerProvider
	propagator     propagation.TextMapPropagator
	limiter        *rate.Limiter
	cache          Cache
	userAgent      string
	logger         *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client. The client is used
// as is: WithTimeout and WithTracing do not touch it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTracing makes the default client report spans to tp and inject trace
// headers with p. Nil values fall back to the otel globals.
func WithTracing(tp trace.TracerProvider, p propagation.TextMapPropagator) Option {
	return func(c *Client) {
		c.tracerProvider = tp
		c.propagator = p
	}
}

// WithRateLimit throttles outgoing requests to rps per second. Zero or
// negative rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   DefaultTimeout,
		userAgent: "suvidha",
		logger:    log.ForService("remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = c.defaultHTTPClient()
	}
	return c
}

func (c *Client) defaultHTTPClient() *http.Client {
	var otelOpts []otelhttp.Option
	if c.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(c.tracerProvider))
	}
	if c.propagator != nil {
		otelOpts = append(otelOpts, otelhttp.WithPropagators(c.propagator))
	}
	return &http.Client{
		Timeout:   c.timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport, otelOpts...),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Search returns the normalized results for query, or an empty response if
// anything goes wrong. A blank query never reaches the network.
func (c *Client) Search(ctx context.Context, query string) search.Response {
	resp, err := c.TrySearch(ctx, query)
	if err != nil {
		c.logger.Warnf("search %q: %v", query, err)
	}
	return resp
}

// TrySearch is Search reporting why a response came back empty. The
// response is always usable, even when err is not nil.
func (c *Client) TrySearch(ctx context.Context, query string) (search.Response, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return search.NewResponse(nil), nil
	}

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, q)
		if err == nil {
			return cached, nil
		}
		c.logger.Debugf("cache lookup for %q: %v", q, err)
	}

	body, err := c.getJSON(ctx, c.baseURL+"/api/search/?q="+encodeQuery(q))
	if err != nil {
		return search.NewResponse(nil), err
	}

	results, shape := search.NormalizeShape(body)
	if shape == search.ShapeUnknown {
		return search.NewResponse(nil), ErrUnrecognizedShape
	}
	c.logger.Debugf("search %q: %s payload, %d results", q, shape, len(results))

	resp := search.NewResponse(results)
	if c.cache != nil && resp.Count > 0 {
		if err := c.cache.Set(ctx, q, resp); err != nil {
			c.logger.Warnf("caching %q: %v", q, err)
		}
	}
	return resp, nil
}

// Raw fetches the search endpoint and returns the decoded payload without
// normalizing it.
func (c *Client) Raw(ctx context.Context, query string) (any, error) {
	return c.getJSON(ctx, c.baseURL+"/api/search/?q="+encodeQuery(strings.TrimSpace(query)))
}

// encodeQuery percent-encodes q the way browsers encode URI components,
// spaces included.
func encodeQuery(q string) string {
	return strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
}

func (c *Client) getJSON(ctx context.Context, reqURL string) (any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrTransport, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debugf("GET %s", reqURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, URL: reqURL}
	}

	body, err := search.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return body, nil
}

// StatusError reports a non-2xx answer. It matches ErrStatus with errors.Is.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d from %s", ErrStatus, e.Code, e.URL)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}
