package services

import (
	"fmt"
	"sort"

	"golang.org/x/oauth2"

	"github.com/desertthunder/reeltrack/internal/shared"
)

// OAuthProvider builds authorize URLs for one login provider.
type OAuthProvider struct {
	name   string
	config *oauth2.Config
}

// NewOAuthProvider creates a provider from its config section.
func NewOAuthProvider(name string, cfg shared.OAuthProviderConfig) (*OAuthProvider, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: oauth provider %s", shared.ErrMissingCredentials, name)
	}
	if cfg.AuthURL == "" {
		return nil, fmt.Errorf("%w: oauth provider %s has no auth_url", shared.ErrInvalidConfig, name)
	}

	return &OAuthProvider{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}, nil
}

// NewOAuthProviders builds every configured provider and skips placeholders.
func NewOAuthProviders(configs map[string]shared.OAuthProviderConfig) map[string]*OAuthProvider {
	providers := make(map[string]*OAuthProvider)
	for name, cfg := range configs {
		if p, err := NewOAuthProvider(name, cfg); err == nil {
			providers[name] = p
		}
	}
	return providers
}

// ProviderNames returns the sorted provider names.
func ProviderNames(providers map[string]*OAuthProvider) []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *OAuthProvider) Name() string { return p.name }

// RedirectURL is the callback registered with the provider.
func (p *OAuthProvider) RedirectURL() string { return p.config.RedirectURL }

// AuthURL returns the provider consent URL carrying state.
func (p *OAuthProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
}
