package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/tokenstore"
)

// Request describes one backend call. Body is JSON encoded unless it is already []byte.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// Client is the single entry point for backend calls. Every call runs the
// request interceptors, is dispatched, then runs the response interceptors.
type Client struct {
	baseURL   *url.URL
	headers   http.Header
	http      *http.Client
	store     tokenstore.Store
	logger    *zap.SugaredLogger
	before    []RequestInterceptor
	after     []ResponseInterceptor
	refresher *RefreshCoordinator

	transport   http.RoundTripper
	refreshPath string
}

type Option func(*Client)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTransport replaces the underlying round tripper (tests, proxies).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithRefreshPath overrides the refresh endpoint, "/auth/refresh" by default.
func WithRefreshPath(p string) Option {
	return func(c *Client) { c.refreshPath = p }
}

// WithRequestInterceptor appends an interceptor after the bearer interceptor.
func WithRequestInterceptor(fn RequestInterceptor) Option {
	return func(c *Client) { c.before = append(c.before, fn) }
}

// WithResponseInterceptor appends an interceptor after the refresh coordinator.
func WithResponseInterceptor(fn ResponseInterceptor) Option {
	return func(c *Client) { c.after = append(c.after, fn) }
}

func New(cfg Config, store tokenstore.Store, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.New("apiclient: token store is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}

	c := &Client{
		baseURL:     base,
		headers:     http.Header{"Content-Type": []string{"application/json"}},
		store:       store,
		logger:      zap.NewNop().Sugar(),
		transport:   http.DefaultTransport,
		refreshPath: "/auth/refresh",
	}
	for k, v := range cfg.Headers {
		c.headers.Set(k, v)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(c.transport)}
	c.refresher = newRefreshCoordinator(c, store, c.refreshPath, c.logger)

	// bearer injection and refresh always run first; extras follow
	c.before = append([]RequestInterceptor{BearerInterceptor(store, c.logger)}, c.before...)
	c.after = append([]ResponseInterceptor{c.refresher.Intercept}, c.after...)
	return c, nil
}

// Store returns the token store the client reads credentials from.
func (c *Client) Store() tokenstore.Store { return c.store }

// Refresher exposes the refresh coordinator, mainly for explicit refreshes.
func (c *Client) Refresher() *RefreshCoordinator { return c.refresher }

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

// Do sends r and decodes a 2xx JSON body into out (nil out discards the body).
// Non-2xx responses become *APIError, refresh failures *RefreshError, and
// transport failures are returned wrapped.
func (c *Client) Do(ctx context.Context, r *Request, out any) error {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return err
	}
	for _, fn := range c.before {
		fn(req)
	}

	resp, err := c.dispatch(req)
	if err != nil {
		c.logger.Debugw("request failed", "method", req.Method, "path", req.URL.Path, "err", err)
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	for _, fn := range c.after {
		resp, err = fn(req, resp, c.dispatch)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()
	return decode(req, resp, out)
}

func (c *Client) dispatch(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

func (c *Client) newRequest(ctx context.Context, r *Request) (*http.Request, error) {
	u := c.baseURL.JoinPath(r.Path)
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var body io.Reader
	switch b := r.Body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", r.Method, r.Path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range r.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
	return req, nil
}

func decode(req *http.Request, resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Method: req.Method, Path: req.URL.Path, Payload: data}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode body: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// cloneRequest copies req with a fresh body so it can be sent again.
func cloneRequest(req *http.Request) (*http.Request, error) {
	cloned := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return cloned, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	cloned.Body = body
	return cloned, nil
}
