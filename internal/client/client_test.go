package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/query"
	"github.com/desertthunder/reeltrack/internal/reactions"
	"github.com/desertthunder/reeltrack/internal/repositories"
	"github.com/desertthunder/reeltrack/internal/services"
	"github.com/desertthunder/reeltrack/internal/shared"
	tu "github.com/desertthunder/reeltrack/internal/testing"
	"github.com/desertthunder/reeltrack/internal/watchlist"
	"github.com/desertthunder/reeltrack/internal/web"
)

var (
	_ reactions.Mutator = (*Client)(nil)
	_ watchlist.Mutator = (*Client)(nil)
)

// setupServer runs the full site against a mock backend and returns a client for it.
func setupServer(t *testing.T) (*Client, *tu.MockBackend) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	mock := tu.NewMockBackend(t)
	mock.SeedContent(models.ContentMovie, 3)

	logger := log.New(io.Discard)
	cfg := shared.DefaultConfig()
	cfg.Server.RatePerSecond = 0

	handler, err := web.New(web.Deps{
		Backend:  services.NewBackendService(shared.BackendConfig{BaseURL: mock.URL, Timeout: 5 * time.Second}, logger),
		Sessions: repositories.NewSessionRepository(db),
		Config:   cfg,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("failed to build site: %v", err)
	}

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithLogger(logger))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c, mock
}

func TestNew(t *testing.T) {
	t.Run("Rejects Relative URL", func(t *testing.T) {
		_, err := New("localhost")
		tu.AssertErrorIs(t, err, shared.ErrInvalidArgument)
	})

	t.Run("Token Round Trip", func(t *testing.T) {
		c, err := New("http://127.0.0.1:3000")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Token() != "" {
			t.Error("expected no token")
		}
		c.SetToken("abc")
		if c.Token() != "abc" {
			t.Errorf("expected abc, got %q", c.Token())
		}
		c.SetToken("")
		if c.Token() != "" {
			t.Error("expected token cleared")
		}
	})
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Catalog", func(t *testing.T) {
		c, _ := setupServer(t)

		page, err := c.Popular(ctx, models.ContentMovie, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page.Items) != 3 {
			t.Errorf("expected 3 movies, got %d", len(page.Items))
		}

		content, err := c.Content(ctx, "movie-2")
		if err != nil || content.Title != "Movie #2" {
			t.Errorf("unexpected content %+v, %v", content, err)
		}

		_, err = c.Content(ctx, "missing")
		tu.AssertErrorIs(t, err, shared.ErrNotFound)
		if err.Error() != "content not found" {
			t.Errorf("expected server message, got %q", err.Error())
		}
	})

	t.Run("Anonymous Watchlist Is Unauthenticated", func(t *testing.T) {
		c, _ := setupServer(t)
		_, err := c.Watchlist(ctx)
		if !IsUnauthenticated(err) {
			t.Errorf("expected unauthenticated error, got %v", err)
		}
	})

	t.Run("Login Logout", func(t *testing.T) {
		c, mock := setupServer(t)
		token, _ := mock.AddUser("ada@example.com", "pw", "Ada")

		user, err := c.Login(ctx, "ada@example.com", "pw")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if user.Email != "ada@example.com" || c.Token() != token {
			t.Errorf("unexpected login state %+v token=%q", user, c.Token())
		}

		me, err := c.Me(ctx)
		if err != nil || me.Name != "Ada" {
			t.Errorf("unexpected me %+v, %v", me, err)
		}

		if err := c.Logout(ctx); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if c.Token() != "" {
			t.Error("expected token dropped")
		}

		// The revoked token stays unusable even when restored.
		c.SetToken(token)
		_, err = c.Me(ctx)
		tu.AssertErrorIs(t, err, shared.ErrNotAuthenticated)
	})

	t.Run("Bad Credentials", func(t *testing.T) {
		c, mock := setupServer(t)
		mock.AddUser("ada@example.com", "pw", "Ada")

		_, err := c.Login(ctx, "ada@example.com", "wrong")
		tu.AssertErrorIs(t, err, shared.ErrNotAuthenticated)
	})

	t.Run("Restored Token", func(t *testing.T) {
		c, mock := setupServer(t)
		token, _ := mock.AddUser("ada@example.com", "pw", "Ada")
		c.SetToken(token)

		if _, err := c.Profile(ctx); err != nil {
			t.Errorf("expected restored token to authenticate: %v", err)
		}
	})

	t.Run("Watchlist Mutations", func(t *testing.T) {
		c, mock := setupServer(t)
		token, _ := mock.AddUser("ada@example.com", "pw", "Ada")
		c.SetToken(token)

		item, err := c.AddToWatchlist(ctx, "movie-1", models.StatusToWatch)
		if err != nil || item.ContentID != "movie-1" {
			t.Fatalf("add failed: %+v, %v", item, err)
		}

		_, err = c.AddToWatchlist(ctx, "movie-1", models.StatusToWatch)
		tu.AssertErrorIs(t, err, shared.ErrInvalidInput)

		exists, err := c.WatchlistExists(ctx, "movie-1")
		if err != nil || !exists {
			t.Errorf("expected movie-1 saved, got %v, %v", exists, err)
		}

		if _, err := c.UpdateWatchlist(ctx, "movie-1", models.StatusWatched); err != nil {
			t.Errorf("update failed: %v", err)
		}

		items, err := c.Watchlist(ctx)
		if err != nil || len(items) != 1 || items[0].Status != models.StatusWatched {
			t.Errorf("unexpected watchlist %+v, %v", items, err)
		}

		if err := c.RemoveFromWatchlist(ctx, "movie-1"); err != nil {
			t.Errorf("remove failed: %v", err)
		}
		tu.AssertErrorIs(t, c.RemoveFromWatchlist(ctx, "movie-1"), shared.ErrNotFound)
	})

	t.Run("Reactions Through Handler", func(t *testing.T) {
		c, mock := setupServer(t)
		token, _ := mock.AddUser("ada@example.com", "pw", "Ada")
		mock.AddReview(models.Review{ReviewID: "review-1", ContentID: "movie-1", Author: "Grace", Rating: 9, Body: "Wow"})
		c.SetToken(token)

		cache := query.New()
		h := reactions.NewHandler(cache, c, nil, log.New(io.Discard))
		fetch := func(ctx context.Context) ([]models.Review, error) { return c.Reviews(ctx, "movie-1") }

		reviews, err := h.Reviews(ctx, "movie-1", fetch)
		if err != nil || len(reviews) != 1 {
			t.Fatalf("unexpected reviews %+v, %v", reviews, err)
		}

		optimistic, err := h.React(ctx, reviews[0], models.ReactionDislike)
		if err != nil {
			t.Fatalf("react failed: %v", err)
		}
		if optimistic.Dislikes != 1 {
			t.Errorf("expected optimistic dislike, got %+v", optimistic)
		}
		h.Wait()

		reviews, err = h.Reviews(ctx, "movie-1", fetch)
		if err != nil {
			t.Fatalf("refetch failed: %v", err)
		}
		if reviews[0].Dislikes != 1 || reviews[0].Reaction() != models.ReactionDislike {
			t.Errorf("expected authoritative dislike, got %+v", reviews[0])
		}
	})

	t.Run("Rate Limited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"success":false,"message":"too many requests"}`)
		}))
		defer srv.Close()

		c, _ := New(srv.URL)
		_, err := c.Popular(ctx, models.ContentSeries, 1)
		tu.AssertErrorIs(t, err, shared.ErrRateLimited)
	})

	t.Run("Unreachable Server", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		c, _ := New(addr)
		_, err := c.Me(ctx)
		tu.AssertErrorIs(t, err, shared.ErrServiceUnavailable)
	})
}
