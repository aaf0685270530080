// Package illustraitor is a client for the Illustraitor image-generation service.
//
// Every call issues a single HTTP request bounded by the client's timeout and
// returns either a result or an *Error; nothing is retried automatically.
package illustraitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gregjones/httpcache"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds every call. The hosted service cold-starts slowly.
	DefaultTimeout = 45 * time.Second

	maxBodySize = 4 << 20
	userAgent   = "illustraitor-cli"
)

// KeySource supplies the stored credential when a request does not carry one.
type KeySource interface {
	APIKey(ctx context.Context) (string, bool, error)
}

// Client talks to the image-generation service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// stylesClient shares httpClient's transport behind an in-memory HTTP cache.
	stylesClient *http.Client
	timeout      time.Duration
	keys         KeySource
	logger       *zap.Logger

	mu      sync.RWMutex
	catalog Catalog
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its Timeout is ignored in favor of WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call time budget.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithKeySource sets where Generate looks up the stored API key.
func WithKeySource(ks KeySource) Option {
	return func(c *Client) { c.keys = ks }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
		catalog:    FallbackCatalog(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.stylesClient = &http.Client{
		Transport: &httpcache.Transport{
			Transport:           base,
			Cache:               httpcache.NewMemoryCache(),
			MarkCachedResponses: true,
		},
		CheckRedirect: c.httpClient.CheckRedirect,
		Jar:           c.httpClient.Jar,
	}
	return c
}

// BaseURL returns the service endpoint the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the per-call time budget.
func (c *Client) Timeout() time.Duration { return c.timeout }

type call struct {
	method string
	path   string
	// route is the path as logged; it never contains credentials.
	route string
	body  any
	hc    *http.Client
}

// do performs one JSON round trip and returns the raw response body.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, validationError("encoding request body: %v", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return nil, validationError("invalid service endpoint %q: %v", c.baseURL, err)
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)

	hc := cl.hc
	if hc == nil {
		hc = c.httpClient
	}

	start := time.Now()
	log := c.logger.With(
		zap.String("method", cl.method),
		zap.String("route", cl.route),
		zap.String("request_id", requestID),
	)
	log.Debug("request started")

	resp, err := hc.Do(req)
	if err != nil {
		e := c.transportError(ctx, err)
		log.Debug("request failed", zap.Duration("elapsed", time.Since(start)), zap.Stringer("kind", e.Kind), zap.Error(err))
		return nil, e
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		e := c.transportError(ctx, err)
		log.Debug("reading response failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, e
	}

	log.Debug("request finished",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("cached", resp.Header.Get(httpcache.XFromCache) != ""),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, serverError(resp.StatusCode, raw)
	}
	return raw, nil
}

// transportError classifies a failure of the round trip itself.
func (c *Client) transportError(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("no response within %s", c.timeout),
			Err:     err,
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Kind: KindNetwork, Message: "request cancelled", Err: err}
	}
	return &Error{Kind: KindNetwork, Message: "service unreachable", Err: err}
}

// serverError builds a ServerError from an error body shaped like
// {"detail": "..."}, {"detail": {"error": "..."}} or {"message": "..."}.
func serverError(status int, raw []byte) *Error {
	e := &Error{Kind: KindServer, StatusCode: status}

	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		e.Message = detailMessage(body.Detail)
		if e.Message == "" {
			e.Message = body.Message
		}
		if e.Message == "" {
			e.Message = body.Error
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	}
	return e
}

func detailMessage(detail json.RawMessage) string {
	if len(detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(detail, &s); err == nil {
		return s
	}
	var obj struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(detail, &obj); err == nil {
		if obj.Error != "" {
			return obj.Error
		}
		return obj.Message
	}
	// FastAPI validation errors: [{"msg": "..."}]
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(detail, &list); err == nil && len(list) > 0 {
		return list[0].Msg
	}
	return ""
}

func decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return parseError("malformed JSON response", err)
	}
	return nil
}
