package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/server"
	"github.com/desertthunder/reeltrack/internal/services"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/desertthunder/reeltrack/internal/sitemap"
)

// Backend is the upstream API used by the site.
type Backend interface {
	Popular(ctx context.Context, ct models.ContentType, page, limit int) (*models.ContentPage, error)
	Content(ctx context.Context, id string) (*models.Content, error)
	Search(ctx context.Context, query string, page int) (*models.ContentPage, error)

	Reviews(ctx context.Context, token, contentID string) ([]models.Review, error)
	CreateReview(ctx context.Context, token string, review models.NewReview) (*models.Review, error)
	DeleteReview(ctx context.Context, token, reviewID string) error
	React(ctx context.Context, token, reviewID string, reaction models.ReactionType) (*models.Review, error)

	Watchlist(ctx context.Context, token string) ([]models.WatchlistItem, error)
	WatchlistExists(ctx context.Context, token, contentID string) (bool, error)
	AddToWatchlist(ctx context.Context, token, contentID string, status models.WatchStatus) (*models.WatchlistItem, error)
	UpdateWatchlist(ctx context.Context, token, contentID string, status models.WatchStatus) (*models.WatchlistItem, error)
	RemoveFromWatchlist(ctx context.Context, token, contentID string) error

	Login(ctx context.Context, creds models.Credentials) (*models.AuthResult, error)
	Register(ctx context.Context, creds models.Credentials) (*models.AuthResult, error)
	VerifyEmail(ctx context.Context, token string) (*models.AuthResult, error)
	ExchangeOAuth(ctx context.Context, provider, code, redirectURI string) (*models.AuthResult, error)
	Me(ctx context.Context, token string) (*models.User, error)
	Profile(ctx context.Context, token string) (*models.User, error)
	UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) (*models.User, error)

	Health(ctx context.Context) error
}

// Sessions records and revokes tokens issued through this site.
type Sessions interface {
	Record(token string, user *models.User, provider string) (*models.AuthSession, error)
	Revoke(token string) error
	IsRevoked(token string) (bool, error)
}

// Deps are the collaborators of the site. Sessions, States, Sitemaps and Registry are optional.
type Deps struct {
	Backend   Backend
	Sessions  Sessions
	States    server.StateStore
	Providers map[string]*services.OAuthProvider
	Sitemaps  *sitemap.Generator
	Registry  *prometheus.Registry
	Config    *shared.Config
	Logger    *log.Logger
}

// New assembles the router with middleware, API, pages, OAuth, crawler and operational routes.
func New(d Deps) (*server.ChiRouter, error) {
	if d.Backend == nil {
		return nil, fmt.Errorf("%w: backend is required", shared.ErrMissingConfig)
	}
	if d.Config == nil {
		d.Config = shared.DefaultConfig()
	}
	if d.Logger == nil {
		d.Logger = shared.NewLogger(nil)
	}

	cfg := d.Config
	secure := cfg.Server.CookieSecure
	siteURL := strings.TrimRight(cfg.Server.SiteURL, "/")

	var revocations server.RevocationChecker
	if d.Sessions != nil {
		revocations = d.Sessions
	}

	router := server.NewRouter()
	router.Use(
		server.Recover(d.Logger),
		server.RequestLogger(d.Logger),
		server.Metrics(),
		server.Trace("reeltrack"),
		server.RateLimit("/api/", cfg.Server.RatePerSecond, cfg.Server.Burst),
		server.Authenticate(revocations, secure, d.Logger),
	)

	pages, err := NewPageHandler(d.Backend, d.Sessions, siteURL, secure, services.ProviderNames(d.Providers), d.Logger)
	if err != nil {
		return nil, err
	}

	router.Handler(NewAPIHandler(d.Backend, d.Sessions, secure, d.Logger))
	router.Handler(pages)
	router.NotFound(pages.NotFound)

	if d.Sitemaps != nil {
		router.Handler(NewSEOHandler(d.Sitemaps, siteURL, d.Logger))
	}
	if d.States != nil && len(d.Providers) > 0 {
		var recorder server.SessionRecorder
		if d.Sessions != nil {
			recorder = d.Sessions
		}
		router.Handler(server.NewOAuthHandler(d.Providers, d.States, recorder, d.Backend, siteURL, secure, d.Logger))
	}

	router.Handle(http.MethodGet, "/health", healthHandler(d.Backend))
	if d.Registry != nil {
		router.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}
	return router, nil
}

func healthHandler(backend Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status, code, upstream := "ok", http.StatusOK, "ok"
		if err := backend.Health(ctx); err != nil {
			status, code, upstream = "degraded", http.StatusServiceUnavailable, "unreachable"
		}
		server.WriteJSON(w, code, map[string]string{"status": status, "backend": upstream})
	}
}
