package web

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reeltrack/internal/server"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/desertthunder/reeltrack/internal/sitemap"
)

// SEOHandler serves robots.txt and the sitemaps.
type SEOHandler struct {
	generator *sitemap.Generator
	siteURL   string
	logger    *log.Logger
}

// NewSEOHandler creates the crawler surface for siteURL.
func NewSEOHandler(generator *sitemap.Generator, siteURL string, logger *log.Logger) *SEOHandler {
	return &SEOHandler{
		generator: generator,
		siteURL:   siteURL,
		logger:    shared.WithLogger(logger, "component", "seo"),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *SEOHandler) Routes() []server.Route {
	return []server.Route{
		{Method: http.MethodGet, Pattern: "/robots.txt", Handler: h.Robots},
		{Method: http.MethodGet, Pattern: "/sitemap.xml", Handler: h.Index},
		{Method: http.MethodGet, Pattern: "/sitemaps/{name}", Handler: h.Feed},
	}
}

// Robots serves robots.txt.
func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(sitemap.Robots(h.siteURL))
}

// Index serves the sitemap index.
func (h *SEOHandler) Index(w http.ResponseWriter, r *http.Request) {
	body, err := h.generator.Index(r.Context())
	if err != nil {
		h.logger.Error("failed to build sitemap index", "error", err)
		http.Error(w, "sitemap unavailable", http.StatusInternalServerError)
		return
	}
	writeXML(w, body)
}

// Feed serves one category feed.
func (h *SEOHandler) Feed(w http.ResponseWriter, r *http.Request) {
	category, err := sitemap.ParseCategory(server.Param(r, "name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	feed, err := h.generator.Feed(r.Context(), category)
	if err != nil {
		h.logger.Error("failed to build sitemap", "category", category, "error", err)
		http.Error(w, "sitemap unavailable", http.StatusInternalServerError)
		return
	}
	if feed.Fallback {
		w.Header().Set("Cache-Control", "public, max-age=300")
	}
	writeXML(w, feed.Body)
}

func writeXML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", "public, max-age=3600")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
