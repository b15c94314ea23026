package models

import (
	"fmt"
	"time"
)

// SessionTTL is the lifetime of an auth cookie and its session row.
const SessionTTL = 7 * 24 * time.Hour

// AuthSession records an auth token issued through this server. Only the token hash is kept.
type AuthSession struct {
	id        string
	tokenHash string
	userID    string
	email     string
	provider  string
	createdAt time.Time
	expiresAt time.Time
	revokedAt *time.Time
}

// NewAuthSession creates a session for tokenHash that expires after [SessionTTL].
func NewAuthSession(tokenHash, userID, email, provider string) *AuthSession {
	now := time.Now().UTC()
	if provider == "" {
		provider = "password"
	}
	return &AuthSession{
		tokenHash: tokenHash,
		userID:    userID,
		email:     email,
		provider:  provider,
		createdAt: now,
		expiresAt: now.Add(SessionTTL),
	}
}

func (s *AuthSession) ID() string            { return s.id }
func (s *AuthSession) SetID(id string)       { s.id = id }
func (s *AuthSession) TokenHash() string     { return s.tokenHash }
func (s *AuthSession) UserID() string        { return s.userID }
func (s *AuthSession) Email() string         { return s.email }
func (s *AuthSession) Provider() string      { return s.provider }
func (s *AuthSession) CreatedAt() time.Time  { return s.createdAt }
func (s *AuthSession) ExpiresAt() time.Time  { return s.expiresAt }
func (s *AuthSession) RevokedAt() *time.Time { return s.revokedAt }

// SetTimes restores timestamps read from storage.
func (s *AuthSession) SetTimes(created, expires time.Time, revoked *time.Time) {
	s.createdAt, s.expiresAt, s.revokedAt = created, expires, revoked
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *AuthSession) Active(now time.Time) bool {
	return s.revokedAt == nil && now.Before(s.expiresAt)
}

func (s *AuthSession) Validate() error {
	if s.tokenHash == "" {
		return fmt.Errorf("session token hash is required")
	}
	if !s.expiresAt.After(s.createdAt) {
		return fmt.Errorf("session must expire after it is created")
	}
	return nil
}

// OAuthStateTTL bounds how long a popup may take to complete.
const OAuthStateTTL = 10 * time.Minute

// OAuthState is a single-use CSRF value for the popup OAuth flow.
type OAuthState struct {
	state      string
	provider   string
	createdAt  time.Time
	expiresAt  time.Time
	consumedAt *time.Time
}

// NewOAuthState creates an unconsumed state for provider. The value is assigned on Create.
func NewOAuthState(provider string) *OAuthState {
	now := time.Now().UTC()
	return &OAuthState{provider: provider, createdAt: now, expiresAt: now.Add(OAuthStateTTL)}
}

func (o *OAuthState) ID() string             { return o.state }
func (o *OAuthState) SetID(state string)     { o.state = state }
func (o *OAuthState) Provider() string       { return o.provider }
func (o *OAuthState) CreatedAt() time.Time   { return o.createdAt }
func (o *OAuthState) ExpiresAt() time.Time   { return o.expiresAt }
func (o *OAuthState) ConsumedAt() *time.Time { return o.consumedAt }

// SetTimes restores timestamps read from storage.
func (o *OAuthState) SetTimes(created, expires time.Time, consumed *time.Time) {
	o.createdAt, o.expiresAt, o.consumedAt = created, expires, consumed
}

func (o *OAuthState) Validate() error {
	if o.provider == "" {
		return fmt.Errorf("oauth state provider is required")
	}
	if !o.expiresAt.After(o.createdAt) {
		return fmt.Errorf("oauth state must expire after it is created")
	}
	return nil
}
