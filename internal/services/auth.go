package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/shared"
)

func validateCredentials(creds models.Credentials) error {
	if strings.TrimSpace(creds.Email) == "" {
		return fmt.Errorf("%w: email", shared.ErrMissingArgument)
	}
	if creds.Password == "" {
		return fmt.Errorf("%w: password", shared.ErrMissingArgument)
	}
	return nil
}

func (b *BackendService) authResult(ctx context.Context, req request) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := b.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &BackendError{Err: shared.ErrAuthFailed, Message: "backend returned no token"}
	}
	return &out, nil
}

// Login exchanges email and password for a token.
func (b *BackendService) Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error) {
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}
	return b.authResult(ctx, request{endpoint: "auth.login", method: http.MethodPost, path: "/auth/login", body: creds})
}

// Register creates an account. The backend sends a verification email, so the result may carry
// no token yet.
func (b *BackendService) Register(ctx context.Context, creds models.Credentials) (*models.AuthResult, error) {
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	var out models.AuthResult
	err := b.do(ctx, request{endpoint: "auth.register", method: http.MethodPost, path: "/auth/register", body: creds}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyEmail redeems an email verification token.
func (b *BackendService) VerifyEmail(ctx context.Context, token string) (*models.AuthResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: verification token", shared.ErrMissingArgument)
	}
	q := url.Values{}
	q.Set("token", token)
	return b.authResult(ctx, request{endpoint: "auth.verify", method: http.MethodGet, path: "/auth/verify-email", query: q})
}

// ExchangeOAuth hands an authorization code to the backend, which completes the provider exchange.
func (b *BackendService) ExchangeOAuth(ctx context.Context, provider, code, redirectURI string) (*models.AuthResult, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}
	body := map[string]string{"provider": provider, "code": code, "redirectUri": redirectURI}
	return b.authResult(ctx, request{endpoint: "auth.oauth", method: http.MethodPost, path: "/auth/oauth", body: body})
}

// Me returns the user owning token.
func (b *BackendService) Me(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}
	var out models.User
	if err := b.do(ctx, request{endpoint: "auth.me", method: http.MethodGet, path: "/auth/me", token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the token user's profile.
func (b *BackendService) Profile(ctx context.Context, token string) (*models.User, error) {
	var out models.User
	if err := b.do(ctx, request{endpoint: "profile.get", method: http.MethodGet, path: "/users/me", token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile applies update to the token user's profile.
func (b *BackendService) UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) (*models.User, error) {
	if update.Name == nil && update.AvatarURL == nil {
		return nil, fmt.Errorf("%w: nothing to update", shared.ErrInvalidInput)
	}
	var out models.User
	err := b.do(ctx, request{
		endpoint: "profile.update", method: http.MethodPatch, path: "/users/me", token: token, body: update,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
