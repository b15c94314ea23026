package web

import (
	"net/http"
	"strings"
	"testing"

	tu "github.com/desertthunder/reeltrack/internal/testing"
)

func TestSEORoutes(t *testing.T) {
	t.Run("Robots", func(t *testing.T) {
		s := setupSite(t)
		rec := s.do(t, http.MethodGet, "/robots.txt", "", "")
		tu.AssertStatus(t, rec.Code, http.StatusOK)

		body := rec.Body.String()
		for _, want := range []string{"Disallow: /api/", "Sitemap: https://reeltrack.example.com/sitemap.xml"} {
			if !strings.Contains(body, want) {
				t.Errorf("expected robots.txt to contain %q", want)
			}
		}
	})

	t.Run("Index Lists Every Feed", func(t *testing.T) {
		s := setupSite(t)
		rec := s.do(t, http.MethodGet, "/sitemap.xml", "", "")
		tu.AssertStatus(t, rec.Code, http.StatusOK)

		body := rec.Body.String()
		for _, want := range []string{"<sitemapindex", "/sitemaps/static.xml", "/sitemaps/movies.xml", "/sitemaps/series.xml"} {
			if !strings.Contains(body, want) {
				t.Errorf("expected index to contain %q", want)
			}
		}
	})

	t.Run("Movies Feed", func(t *testing.T) {
		s := setupSite(t)
		rec := s.do(t, http.MethodGet, "/sitemaps/movies.xml", "", "")
		tu.AssertStatus(t, rec.Code, http.StatusOK)

		if !strings.Contains(rec.Body.String(), "https://reeltrack.example.com/content/movie-25") {
			t.Error("expected every movie in the feed")
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
			t.Errorf("expected xml, got %q", ct)
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
			t.Errorf("unexpected cache control %q", cc)
		}
	})

	t.Run("Unknown Feed", func(t *testing.T) {
		s := setupSite(t)
		tu.AssertStatus(t, s.do(t, http.MethodGet, "/sitemaps/episodes.xml", "", "").Code, http.StatusNotFound)
	})

	t.Run("Backend Failure Serves Static Fallback", func(t *testing.T) {
		s := setupSite(t)
		s.mock.FailOn(http.MethodGet, "/content/popular", http.StatusInternalServerError)

		rec := s.do(t, http.MethodGet, "/sitemaps/series.xml", "", "")
		tu.AssertStatus(t, rec.Code, http.StatusOK)
		if !strings.Contains(rec.Body.String(), "https://reeltrack.example.com/watchlist") {
			t.Error("expected static pages in the fallback feed")
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=300" {
			t.Errorf("expected short cache for fallback, got %q", cc)
		}
	})
}
