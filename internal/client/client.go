// Package client talks to reeltrack's local JSON API.
//
// A [Client] keeps the auth cookie in a cookie jar, so signing in through [Client.Login] or
// restoring a saved token with [Client.SetToken] authenticates every later call. Failed calls
// return an [*Error] that unwraps to one of the shared sentinel errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/shared"
)

// CookieName matches the cookie the server issues on sign in.
const CookieName = "token"

// Error is a failed API call.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client calls the local API routes of a reeltrack server.
type Client struct {
	base   *url.URL
	http   *http.Client
	jar    http.CookieJar
	logger *log.Logger
}

// Option customizes a [Client].
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTransport replaces the traced default transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = shared.WithLogger(l, "component", "client") }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid server url %q", shared.ErrInvalidArgument, baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		base: base,
		jar:  jar,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Jar:       jar,
		},
		logger: shared.WithLogger(log.New(io.Discard), "component", "client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Token returns the auth token currently held in the cookie jar.
func (c *Client) Token() string {
	for _, cookie := range c.jar.Cookies(c.base) {
		if cookie.Name == CookieName {
			return cookie.Value
		}
	}
	return ""
}

// SetToken stores token in the cookie jar. An empty token signs the client out locally.
func (c *Client) SetToken(token string) {
	cookie := &http.Cookie{Name: CookieName, Value: token, Path: "/"}
	if token == "" {
		cookie.MaxAge = -1
	}
	c.jar.SetCookies(c.base, []*http.Cookie{cookie})
}

func statusError(status int, message string) *Error {
	var sentinel error
	switch status {
	case http.StatusBadRequest:
		sentinel = shared.ErrInvalidInput
	case http.StatusUnauthorized:
		sentinel = shared.ErrNotAuthenticated
	case http.StatusNotFound:
		sentinel = shared.ErrNotFound
	case http.StatusTooManyRequests:
		sentinel = shared.ErrRateLimited
	case http.StatusServiceUnavailable:
		sentinel = shared.ErrServiceUnavailable
	default:
		sentinel = shared.ErrAPIRequest
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Status: status, Message: message, Err: sentinel}
}

// do sends a request and decodes the envelope's data into out, which may be nil.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	target := c.base.JoinPath(path)
	if len(q) > 0 {
		target.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: failed to encode request: %v", shared.ErrInvalidInput, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &Error{Err: shared.ErrServiceUnavailable, Message: "server unavailable"}
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond))

	var env models.Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return statusError(resp.StatusCode, "")
		}
		return fmt.Errorf("%w: malformed response: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, env.Message)
	}
	if !env.Success {
		return statusError(http.StatusBadRequest, env.Message)
	}
	if out == nil {
		return nil
	}
	if err := env.Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode data: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

func pageQuery(page int) url.Values {
	q := url.Values{}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return q
}

// Popular lists popular content of one type.
func (c *Client) Popular(ctx context.Context, ct models.ContentType, page int) (*models.ContentPage, error) {
	q := pageQuery(page)
	q.Set("type", string(ct))

	var out models.ContentPage
	if err := c.do(ctx, http.MethodGet, "/api/content/popular", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a catalog search.
func (c *Client) Search(ctx context.Context, q string, page int) (*models.ContentPage, error) {
	values := pageQuery(page)
	values.Set("q", q)

	var out models.ContentPage
	if err := c.do(ctx, http.MethodGet, "/api/content/search", values, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Content fetches one content item.
func (c *Client) Content(ctx context.Context, id string) (*models.Content, error) {
	var out models.Content
	if err := c.do(ctx, http.MethodGet, "/api/content/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reviews lists the reviews of a content item.
func (c *Client) Reviews(ctx context.Context, contentID string) ([]models.Review, error) {
	var out []models.Review
	if err := c.do(ctx, http.MethodGet, "/api/content/"+url.PathEscape(contentID)+"/reviews", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateReview posts a review.
func (c *Client) CreateReview(ctx context.Context, review models.NewReview) (*models.Review, error) {
	var out models.Review
	if err := c.do(ctx, http.MethodPost, "/api/reviews", nil, review, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// React sends a reaction intent for a review.
func (c *Client) React(ctx context.Context, reviewID string, reaction models.ReactionType) (*models.Review, error) {
	var out models.Review
	body := map[string]string{"type": string(reaction)}
	if err := c.do(ctx, http.MethodPost, "/api/reviews/"+url.PathEscape(reviewID)+"/reaction", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Watchlist lists the signed-in user's watchlist.
func (c *Client) Watchlist(ctx context.Context) ([]models.WatchlistItem, error) {
	var out []models.WatchlistItem
	if err := c.do(ctx, http.MethodGet, "/api/watchlist", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchlistExists reports whether contentID is saved.
func (c *Client) WatchlistExists(ctx context.Context, contentID string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/watchlist/"+url.PathEscape(contentID)+"/exists", nil, nil, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// AddToWatchlist saves contentID with status.
func (c *Client) AddToWatchlist(ctx context.Context, contentID string, status models.WatchStatus) (*models.WatchlistItem, error) {
	var out models.WatchlistItem
	body := map[string]string{"contentId": contentID, "status": string(status)}
	if err := c.do(ctx, http.MethodPost, "/api/watchlist", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateWatchlist changes the status of a saved item.
func (c *Client) UpdateWatchlist(ctx context.Context, contentID string, status models.WatchStatus) (*models.WatchlistItem, error) {
	var out models.WatchlistItem
	body := map[string]string{"status": string(status)}
	if err := c.do(ctx, http.MethodPatch, "/api/watchlist/"+url.PathEscape(contentID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFromWatchlist deletes a saved item.
func (c *Client) RemoveFromWatchlist(ctx context.Context, contentID string) error {
	return c.do(ctx, http.MethodDelete, "/api/watchlist/"+url.PathEscape(contentID), nil, nil, nil)
}

// Login signs in with email and password. The server's cookie lands in the jar.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var out models.User
	creds := models.Credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, creds, &out); err != nil {
		return nil, err
	}
	if c.Token() == "" {
		return nil, &Error{Err: shared.ErrAuthFailed, Message: "server did not issue a session"}
	}
	return &out, nil
}

// Register creates an account. The user usually has to verify their email before signing in.
func (c *Client) Register(ctx context.Context, creds models.Credentials) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the session on the server and drops the local token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	c.SetToken("")
	return err
}

// VerifyEmail redeems a verification token, which also signs the client in.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify-email", url.Values{"token": {token}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the user's name or avatar.
func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPatch, "/api/profile", nil, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsUnauthenticated reports whether err means the client must sign in again.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, shared.ErrNotAuthenticated)
}
