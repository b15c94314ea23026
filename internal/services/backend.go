package services

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

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/desertthunder/reeltrack/internal/metrics"
	"github.com/desertthunder/reeltrack/internal/shared"
)

// BackendError is a failed upstream call. It unwraps to one of the shared sentinel errors.
type BackendError struct {
	Status  int    // upstream HTTP status, 0 when no response arrived
	Message string // backend supplied message, safe to show to users
	Err     error
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Message)
	}
	return e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// sentinelForStatus maps an upstream status to the shared error taxonomy.
func sentinelForStatus(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return shared.ErrInvalidInput
	case http.StatusUnauthorized, http.StatusForbidden:
		return shared.ErrNotAuthenticated
	case http.StatusNotFound:
		return shared.ErrNotFound
	default:
		return shared.ErrAPIRequest
	}
}

// BackendService is the client for the upstream REST API.
type BackendService struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	cache    ResponseCache
	cacheTTL time.Duration
	logger   *log.Logger
}

// BackendOption customizes a [BackendService].
type BackendOption func(*BackendService)

// WithHTTPClient replaces the traced default HTTP client.
func WithHTTPClient(client *http.Client) BackendOption {
	return func(b *BackendService) { b.client = client }
}

// WithResponseCache enables caching of anonymous catalog reads.
func WithResponseCache(cache ResponseCache) BackendOption {
	return func(b *BackendService) { b.cache = cache }
}

// NewBackendService creates a client for cfg.BaseURL.
func NewBackendService(cfg shared.BackendConfig, logger *log.Logger, opts ...BackendOption) *BackendService {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	b := &BackendService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:  rate.NewLimiter(limit, burst),
		cacheTTL: cfg.CacheTTL,
		logger:   shared.WithLogger(logger, "component", "backend"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BaseURL returns the configured upstream base URL.
func (b *BackendService) BaseURL() string {
	return b.baseURL
}

// request describes one upstream call.
type request struct {
	endpoint string // metrics label, e.g. "content.popular"
	method   string
	path     string
	query    url.Values
	token    string
	body     any
	cache    bool
}

func (r request) target() string {
	if len(r.query) == 0 {
		return r.path
	}
	return r.path + "?" + r.query.Encode()
}

// do executes req and decodes the normalized data into out, which may be nil.
func (b *BackendService) do(ctx context.Context, req request, out any) error {
	cacheable := req.cache && b.cache != nil && req.method == http.MethodGet && req.token == ""
	key := req.target()

	if cacheable {
		if data, ok, err := b.cache.Get(ctx, key); err == nil && ok {
			metrics.CacheResult("backend", true)
			return decodeData(data, out)
		} else if err != nil {
			b.logger.Warn("response cache read failed", "key", key, "error", err)
		}
		metrics.CacheResult("backend", false)
	}

	data, err := b.send(ctx, req)
	if err != nil {
		return err
	}

	if cacheable && b.cacheTTL > 0 {
		if err := b.cache.Set(ctx, key, data, b.cacheTTL); err != nil {
			b.logger.Warn("response cache write failed", "key", key, "error", err)
		}
	}
	return decodeData(data, out)
}

// send performs the HTTP exchange and returns the unwrapped data payload.
func (b *BackendService) send(ctx context.Context, req request) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, &BackendError{Err: shared.ErrServiceUnavailable, Message: "request cancelled"}
	}

	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode request: %v", shared.ErrInvalidInput, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, b.baseURL+req.target(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	start := time.Now()
	resp, err := b.client.Do(httpReq)
	metrics.BackendRequestDuration.WithLabelValues(req.endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(req.endpoint, "error").Inc()
		b.logger.Error("backend request failed", "endpoint", req.endpoint, "error", err)
		return nil, &BackendError{Err: shared.ErrServiceUnavailable, Message: "backend unavailable"}
	}
	defer resp.Body.Close()

	metrics.BackendRequestsTotal.WithLabelValues(req.endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &BackendError{Status: resp.StatusCode, Err: shared.ErrServiceUnavailable, Message: "failed to read response"}
	}

	b.logger.Debug("backend request",
		"endpoint", req.endpoint, "method", req.method, "status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BackendError{
			Status:  resp.StatusCode,
			Message: errorMessage(raw, resp.StatusCode),
			Err:     sentinelForStatus(resp.StatusCode),
		}
	}

	data, err := unwrapEnvelope(raw)
	if err != nil {
		var be *BackendError
		if errors.As(err, &be) {
			be.Status = resp.StatusCode
		}
		return nil, err
	}
	return data, nil
}

// unwrapEnvelope returns the data payload of a {success, data, message} envelope, or body itself
// when it is any other JSON document.
func unwrapEnvelope(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, nil
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed, nil
	}

	rawSuccess, ok := env["success"]
	if !ok {
		return trimmed, nil
	}

	var success bool
	if err := json.Unmarshal(rawSuccess, &success); err != nil {
		return trimmed, nil
	}

	if !success {
		var msg string
		json.Unmarshal(env["message"], &msg)
		if msg == "" {
			msg = "request rejected by backend"
		}
		return nil, &BackendError{Err: shared.ErrInvalidInput, Message: msg}
	}
	return env["data"], nil
}

// errorMessage extracts a human readable message from an error body.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" || strings.HasPrefix(text, "<") {
		return http.StatusText(status)
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func decodeData(data []byte, out any) error {
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &BackendError{Err: shared.ErrAPIRequest, Message: "unexpected response from backend"}
	}
	return nil
}

// Health checks the upstream health endpoint.
func (b *BackendService) Health(ctx context.Context) error {
	return b.do(ctx, request{endpoint: "health", method: http.MethodGet, path: "/health"}, nil)
}
