package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/query"
	"github.com/desertthunder/reeltrack/internal/reactions"
	"github.com/desertthunder/reeltrack/internal/server"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/desertthunder/reeltrack/internal/watchlist"
)

//go:embed templates/*.html
var templateFS embed.FS

// VerifyRedirectDelay is how long the verification success page waits before going home.
const VerifyRedirectDelay = 3 * time.Second

var pageNames = []string{"home", "browse", "content", "watchlist", "verify", "not_found", "error"}

var funcs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	"rating": func(r float64) string {
		if r <= 0 {
			return "Unrated"
		}
		return fmt.Sprintf("★ %.1f", r)
	},
	"status": func(s models.WatchStatus) string {
		if s == models.StatusWatched {
			return "Watched"
		}
		return "To watch"
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
}

// pageData is passed to every template.
type pageData struct {
	Title          string
	Description    string
	Canonical      string
	Image          string
	NoIndex        bool
	Query          string
	RefreshURL     string
	RefreshSeconds int
	Authenticated  bool
	Providers      []string
	Data           any
	Hydration      map[string]any
}

// PageHandler renders the HTML pages.
type PageHandler struct {
	backend   Backend
	sessions  Sessions
	siteURL   string
	secure    bool
	providers []string
	templates map[string]*template.Template
	logger    *log.Logger
}

// NewPageHandler parses the page templates.
func NewPageHandler(backend Backend, sessions Sessions, siteURL string, secure bool, providers []string, logger *log.Logger) (*PageHandler, error) {
	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &PageHandler{
		backend:   backend,
		sessions:  sessions,
		siteURL:   strings.TrimRight(siteURL, "/"),
		secure:    secure,
		providers: providers,
		templates: templates,
		logger:    shared.WithLogger(logger, "component", "pages"),
	}, nil
}

// Routes returns the HTTP routes this handler serves.
func (h *PageHandler) Routes() []server.Route {
	return []server.Route{
		{Method: http.MethodGet, Pattern: "/", Handler: h.Home},
		{Method: http.MethodGet, Pattern: "/movies", Handler: h.browse(models.ContentMovie)},
		{Method: http.MethodGet, Pattern: "/series", Handler: h.browse(models.ContentSeries)},
		{Method: http.MethodGet, Pattern: "/search", Handler: h.Search},
		{Method: http.MethodGet, Pattern: "/content/{id}", Handler: h.Content},
		{Method: http.MethodGet, Pattern: "/watchlist", Handler: h.Watchlist},
		{Method: http.MethodGet, Pattern: "/verify-email", Handler: h.VerifyEmail},
		{Method: http.MethodPost, Pattern: "/logout", Handler: h.Logout},
	}
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, p pageData) {
	p.Authenticated = server.Token(r.Context()) != ""
	p.Providers = h.providers
	if p.Hydration == nil {
		p.Hydration = map[string]any{}
	}
	if p.Canonical == "" && !p.NoIndex {
		p.Canonical = h.siteURL + r.URL.Path
	}

	var buf bytes.Buffer
	if err := h.templates[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		h.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if p.Authenticated || p.NoIndex {
		w.Header().Set("Cache-Control", "private, no-store")
	}
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError shows the not-found page for missing resources and the error page otherwise.
func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	h.logger.Error("page failed", "path", r.URL.Path, "error", err)
	h.render(w, r, http.StatusInternalServerError, "error", pageData{Title: "Something went wrong", NoIndex: true})
}

// NotFound renders the 404 page.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "not_found", pageData{Title: "Not found", NoIndex: true})
}

type homeData struct {
	Movies *models.ContentPage
	Series *models.ContentPage
}

// Home shows the first page of popular movies and series.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	var data homeData

	eg, ctx := errgroup.WithContext(r.Context())
	eg.Go(func() (err error) {
		data.Movies, err = h.backend.Popular(ctx, models.ContentMovie, 1, popularPageSize)
		return err
	})
	eg.Go(func() (err error) {
		data.Series, err = h.backend.Popular(ctx, models.ContentSeries, 1, popularPageSize)
		return err
	})
	if err := eg.Wait(); err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "home", pageData{
		Title:       "Discover movies and series",
		Description: "Browse popular movies and series, read reviews and keep a watchlist.",
		Data:        data,
		Hydration: map[string]any{
			query.PopularKey(string(models.ContentMovie), 1):  data.Movies,
			query.PopularKey(string(models.ContentSeries), 1): data.Series,
		},
	})
}

type browseData struct {
	Page *models.ContentPage
	Base string
}

func (h *PageHandler) browse(ct models.ContentType) http.HandlerFunc {
	title := "Popular movies"
	if ct == models.ContentSeries {
		title = "Popular series"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePage(r)
		if err != nil {
			h.NotFound(w, r)
			return
		}

		result, err := h.backend.Popular(r.Context(), ct, page, popularPageSize)
		if err != nil {
			h.renderError(w, r, err)
			return
		}

		h.render(w, r, http.StatusOK, "browse", pageData{
			Title:       title,
			Description: title + " on reeltrack.",
			Data:        browseData{Page: result, Base: r.URL.Path + "?"},
			Hydration:   map[string]any{query.PopularKey(string(ct), page): result},
		})
	}
}

// Search shows catalog matches for q.
func (h *PageHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	result := &models.ContentPage{Page: 1}

	if q != "" {
		var err error
		if result, err = h.backend.Search(r.Context(), q, 1); err != nil {
			h.renderError(w, r, err)
			return
		}
	}

	h.render(w, r, http.StatusOK, "browse", pageData{
		Title:   "Search",
		Query:   q,
		NoIndex: true,
		Data:    browseData{Page: result, Base: "/search?q=" + url.QueryEscape(q) + "&"},
	})
}

type contentData struct {
	Content     *models.Content
	Reviews     []models.Review
	InWatchlist bool
	Schema      map[string]any
}

// Content shows a content item with its reviews.
func (h *PageHandler) Content(w http.ResponseWriter, r *http.Request) {
	id := server.Param(r, "id")
	token := server.Token(r.Context())

	c, err := h.backend.Content(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	data := contentData{Content: c, Schema: schemaFor(c, h.siteURL)}
	eg, ctx := errgroup.WithContext(r.Context())
	eg.Go(func() (err error) {
		data.Reviews, err = h.backend.Reviews(ctx, token, id)
		return err
	})
	if token != "" {
		eg.Go(func() error {
			exists, err := h.backend.WatchlistExists(ctx, token, id)
			if errors.Is(err, shared.ErrNotAuthenticated) {
				return nil
			}
			data.InWatchlist = exists
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		h.renderError(w, r, err)
		return
	}

	hydration := map[string]any{
		query.ContentKey(id):      c,
		reactions.ReviewsKey(id): data.Reviews,
	}
	if token != "" {
		hydration[watchlist.ExistsKey(id)] = data.InWatchlist
	}

	h.render(w, r, http.StatusOK, "content", pageData{
		Title:       c.Title,
		Description: summary(c.Overview, 160),
		Canonical:   h.siteURL + c.Path(),
		Image:       c.PosterURL,
		Data:        data,
		Hydration:   hydration,
	})
}

type watchlistData struct {
	Items []models.WatchlistItem
}

// Watchlist shows the caller's watchlist, or a sign-in prompt.
func (h *PageHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	p := pageData{Title: "Watchlist", NoIndex: true, Data: watchlistData{}}

	token := server.Token(r.Context())
	if token == "" {
		h.render(w, r, http.StatusOK, "watchlist", p)
		return
	}

	items, err := h.backend.Watchlist(r.Context(), token)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		server.ClearAuthCookie(w, h.secure)
		h.render(w, r.WithContext(server.WithToken(r.Context(), "")), http.StatusOK, "watchlist", p)
		return
	}
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	p.Data = watchlistData{Items: items}
	p.Hydration = map[string]any{watchlist.ListKey: items}
	h.render(w, r, http.StatusOK, "watchlist", p)
}

type verifyData struct {
	Success bool
	Message string
}

// VerifyEmail redeems the token from the verification email. Success signs the user in and
// redirects home after [VerifyRedirectDelay]; failure shows the backend's message and stays.
func (h *PageHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	p := pageData{Title: "Email verification", NoIndex: true}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		p.Data = verifyData{Message: "The verification link is missing its token."}
		h.render(w, r, http.StatusBadRequest, "verify", p)
		return
	}

	result, err := h.backend.VerifyEmail(r.Context(), token)
	if err != nil {
		status := server.StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("email verification failed", "error", err)
		}
		p.Data = verifyData{Message: server.PublicMessage(err, status)}
		h.render(w, r, status, "verify", p)
		return
	}

	if h.sessions != nil {
		if _, err := h.sessions.Record(result.Token, result.User, "email"); err != nil {
			h.logger.Error("failed to record session", "error", err)
		}
	}
	server.SetAuthCookie(w, result.Token, h.secure)

	p.Data = verifyData{Success: true}
	p.RefreshURL = "/"
	p.RefreshSeconds = int(VerifyRedirectDelay.Seconds())
	h.render(w, r.WithContext(server.WithToken(r.Context(), result.Token)), http.StatusOK, "verify", p)
}

// Logout revokes the session, clears the cookie and returns home.
func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := server.TokenFromRequest(r); token != "" && h.sessions != nil {
		if err := h.sessions.Revoke(token); err != nil {
			h.logger.Error("failed to revoke session", "error", err)
		}
	}
	server.ClearAuthCookie(w, h.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func schemaFor(c *models.Content, siteURL string) map[string]any {
	kind := "Movie"
	if c.Type == models.ContentSeries {
		kind = "TVSeries"
	}
	schema := map[string]any{
		"@context": "https://schema.org",
		"@type":    kind,
		"name":     c.Title,
		"url":      siteURL + c.Path(),
	}
	if c.Overview != "" {
		schema["description"] = c.Overview
	}
	if c.PosterURL != "" {
		schema["image"] = c.PosterURL
	}
	if c.ReleaseDate != "" {
		schema["datePublished"] = c.ReleaseDate
	}
	if c.Rating > 0 {
		schema["aggregateRating"] = map[string]any{
			"@type":       "AggregateRating",
			"ratingValue": strconv.FormatFloat(c.Rating, 'f', 1, 64),
			"bestRating":  "10",
		}
	}
	return schema
}

// summary truncates s to at most n runes on a word boundary.
func summary(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return cut + "…"
}
