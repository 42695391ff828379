package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"cafefinder.de/web/internal/cafe"
)

const (
	defaultPrefix  = "/api"
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 8 << 20
)

var tracer = otel.Tracer("cafefinder.de/web/internal/strapi")

// Finder is the read-only subset of the content API used by the stores.
type Finder interface {
	Find(ctx context.Context, collection string, q Query) (Response, error)
	FindOne(ctx context.Context, collection, id string, q Query) (Response, error)
}

// Response is a successful content API response. Data is already flattened
// (see cafe.Flatten) and is either an object or an array.
type Response struct {
	Data json.RawMessage `json:"data"`
	Meta Meta            `json:"meta"`
}

// Meta carries pagination details of list responses.
type Meta struct {
	Pagination struct {
		Page      int `json:"page"`
		PageSize  int `json:"pageSize"`
		PageCount int `json:"pageCount"`
		Total     int `json:"total"`
	} `json:"pagination"`
}

// Items splits an array payload into its elements. Object payloads yield one
// element; null yields none.
func (r Response) Items() []json.RawMessage {
	trimmed := bytes.TrimSpace(r.Data)
	switch {
	case len(trimmed) == 0 || string(trimmed) == "null":
		return nil
	case trimmed[0] == '[':
		var out []json.RawMessage
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil
		}
		return out
	default:
		return []json.RawMessage{trimmed}
	}
}

// Decode unmarshals Data into v.
func (r Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Data)) == 0 {
		return fmt.Errorf("strapi: empty data")
	}
	return json.Unmarshal(r.Data, v)
}

// Client provides read-only access to a Strapi content API.
type Client struct {
	baseURL  string
	prefix   string
	token    string
	http     *http.Client
	cacheTTL time.Duration
	logger   *zap.Logger

	cache struct {
		mu    sync.RWMutex
		items map[string]cacheEntry
	}
}

type cacheEntry struct {
	resp    Response
	expires time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithPrefix overrides the API path prefix (default "/api").
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" && !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		c.prefix = strings.TrimRight(prefix, "/")
	}
}

// WithToken sends the token as bearer authorization.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCacheTTL enables response caching for the given duration. Zero disables it.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Client for the given base URL (without the /api prefix).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		prefix:  defaultPrefix,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	c.cache.items = map[string]cacheEntry{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Find lists a collection.
func (c *Client) Find(ctx context.Context, collection string, q Query) (Response, error) {
	return c.get(ctx, collection, strings.Trim(collection, "/"), q)
}

// FindOne fetches a single entry by id (numeric id or document id).
func (c *Client) FindOne(ctx context.Context, collection, id string, q Query) (Response, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Response{}, &APIError{Status: http.StatusNotFound, Name: "NotFoundError", Message: "empty id"}
	}
	return c.get(ctx, collection, strings.Trim(collection, "/")+"/"+id, q)
}

// PurgeCache drops all cached responses.
func (c *Client) PurgeCache() {
	c.cache.mu.Lock()
	c.cache.items = map[string]cacheEntry{}
	c.cache.mu.Unlock()
}

func (c *Client) get(ctx context.Context, collection, path string, q Query) (Response, error) {
	if c == nil || c.baseURL == "" {
		return Response{}, fmt.Errorf("strapi: client not configured")
	}
	endpoint := c.baseURL + c.prefix + "/" + path
	if qs := q.Encode(); qs != "" {
		endpoint += "?" + qs
	}

	if resp, ok := c.cached(endpoint); ok {
		c.logger.Debug("strapi cache hit", zap.String("collection", collection), zap.String("url", endpoint))
		return resp, nil
	}

	ctx, span := tracer.Start(ctx, "strapi.get "+collection, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", http.MethodGet),
		attribute.String("url.full", endpoint),
		attribute.String("strapi.collection", collection),
	)

	resp, err := c.do(ctx, endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("strapi request failed",
			zap.String("collection", collection),
			zap.String("url", endpoint),
			zap.Error(err),
		)
		return Response{}, err
	}
	c.store(endpoint, resp)
	return resp, nil
}

func (c *Client) do(ctx context.Context, endpoint string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Response{}, fmt.Errorf("strapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("strapi: request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("strapi: read body: %w", err)
	}
	c.logger.Debug("strapi response",
		zap.String("url", endpoint),
		zap.Int("status", res.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if res.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: res.StatusCode}
		var env errorEnvelope
		if json.Unmarshal(body, &env) == nil && env.Error.Status != 0 {
			apiErr.Name = env.Error.Name
			apiErr.Message = env.Error.Message
		}
		return Response{}, apiErr
	}

	var payload struct {
		Data json.RawMessage `json:"data"`
		Meta Meta            `json:"meta"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Response{}, fmt.Errorf("strapi: decode response: %w", err)
	}
	data, err := cafe.Flatten(payload.Data)
	if err != nil {
		return Response{}, err
	}
	return Response{Data: data, Meta: payload.Meta}, nil
}

func (c *Client) cached(key string) (Response, bool) {
	if c.cacheTTL <= 0 {
		return Response{}, false
	}
	c.cache.mu.RLock()
	entry, ok := c.cache.items[key]
	c.cache.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return Response{}, false
	}
	return entry.resp, true
}

func (c *Client) store(key string, resp Response) {
	if c.cacheTTL <= 0 {
		return
	}
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()
	c.cache.items[key] = cacheEntry{resp: resp, expires: time.Now().Add(c.cacheTTL)}
}
