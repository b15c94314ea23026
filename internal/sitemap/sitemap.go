package sitemap

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/reeltrack/internal/metrics"
	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/shared"
)

const (
	MinPerTypeLimit     = 500
	MaxPerTypeLimit     = 2000
	DefaultPerTypeLimit = 1000
	DefaultPageSize     = 100

	xmlnsSitemap = "http://www.sitemaps.org/schemas/sitemap/0.9"
	xmlnsImage   = "http://www.google.com/schemas/sitemap-image/1.1"
	dateLayout   = "2006-01-02"
)

// Category names one sitemap feed.
type Category string

const (
	CategoryStatic Category = "static"
	CategoryMovies Category = "movies"
	CategorySeries Category = "series"
)

// Categories returns every feed in index order.
func Categories() []Category {
	return []Category{CategoryStatic, CategoryMovies, CategorySeries}
}

// ParseCategory accepts a feed name with or without the .xml suffix.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), ".xml"))
	switch c {
	case CategoryStatic, CategoryMovies, CategorySeries:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown sitemap %q", shared.ErrNotFound, raw)
}

// ContentType returns the content type listed by c. The static feed has none.
func (c Category) ContentType() (models.ContentType, bool) {
	switch c {
	case CategoryMovies:
		return models.ContentMovie, true
	case CategorySeries:
		return models.ContentSeries, true
	}
	return "", false
}

// Path is the feed location relative to the site root.
func (c Category) Path() string {
	return "/sitemaps/" + string(c) + ".xml"
}

// ClampLimit bounds a configured per-type limit. Zero selects the default.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultPerTypeLimit
	case n < MinPerTypeLimit:
		return MinPerTypeLimit
	case n > MaxPerTypeLimit:
		return MaxPerTypeLimit
	}
	return n
}

// Source lists popular content a page at a time.
type Source interface {
	Popular(ctx context.Context, ct models.ContentType, page, limit int) (*models.ContentPage, error)
}

// Cache stores rendered feeds. [services.MemoryCache] and [services.RedisCache] satisfy it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Feed is one rendered sitemap document.
type Feed struct {
	Category    Category
	Body        []byte
	URLs        int
	Fallback    bool
	GeneratedAt time.Time
}

// Generator builds sitemap documents for a site.
type Generator struct {
	source      Source
	cache       Cache
	ttl         time.Duration
	siteURL     string
	limit       int
	pageSize    int
	staticPages []string
	limiter     *rate.Limiter
	logger      *log.Logger
	now         func() time.Time
}

// Option configures a [Generator].
type Option func(*Generator)

// WithCache stores generated feeds in cache for ttl.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(g *Generator) {
		g.cache = cache
		g.ttl = ttl
	}
}

// WithLimiter paces page requests to the backend.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *Generator) { g.limiter = l }
}

// WithClock overrides the time source used for lastmod values.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a generator for siteURL. The per-type limit is clamped to
// [MinPerTypeLimit, MaxPerTypeLimit].
func NewGenerator(source Source, siteURL string, cfg shared.SitemapConfig, logger *log.Logger, opts ...Option) *Generator {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	static := cfg.StaticPages
	if len(static) == 0 {
		static = []string{"/", "/movies", "/series", "/watchlist"}
	}

	g := &Generator{
		source:      source,
		siteURL:     strings.TrimRight(siteURL, "/"),
		limit:       ClampLimit(cfg.PerTypeLimit),
		pageSize:    pageSize,
		staticPages: static,
		limiter:     rate.NewLimiter(rate.Limit(10), 1),
		logger:      shared.WithLogger(logger, "component", "sitemap"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Limit returns the effective per-type item bound.
func (g *Generator) Limit() int { return g.limit }

func cacheKey(c Category) string { return "sitemap:" + string(c) }

// Feed returns the cached feed for category, building it on a miss.
func (g *Generator) Feed(ctx context.Context, category Category) (*Feed, error) {
	if g.cache != nil {
		body, ok, err := g.cache.Get(ctx, cacheKey(category))
		if err != nil {
			g.logger.Warn("sitemap cache read failed", "category", category, "error", err)
		}
		metrics.CacheResult("sitemap", ok)
		if ok {
			metrics.SitemapBuildsTotal.WithLabelValues(string(category), "cached").Inc()
			return &Feed{Category: category, Body: body, URLs: bytes.Count(body, []byte("<url>"))}, nil
		}
	}
	return g.Build(ctx, category)
}

// Build regenerates the feed for category and caches it. A fallback feed is returned, but not
// cached, when the backend fails or has nothing to list.
func (g *Generator) Build(ctx context.Context, category Category) (*Feed, error) {
	now := g.now().UTC()
	ct, dynamic := category.ContentType()
	if category != CategoryStatic && !dynamic {
		return nil, fmt.Errorf("%w: unknown sitemap %q", shared.ErrNotFound, category)
	}

	if !dynamic {
		metrics.SitemapBuildsTotal.WithLabelValues(string(category), "ok").Inc()
		return g.render(category, g.staticEntries(now), false, now)
	}

	items, err := g.collect(ctx, ct)
	if err != nil || len(items) == 0 {
		if err != nil {
			g.logger.Warn("sitemap fetch failed, serving static pages", "category", category, "error", err)
		}
		metrics.SitemapBuildsTotal.WithLabelValues(string(category), "fallback").Inc()
		return g.render(category, g.staticEntries(now), true, now)
	}

	feed, err := g.render(category, g.contentEntries(items), false, now)
	if err != nil {
		return nil, err
	}
	metrics.SitemapBuildsTotal.WithLabelValues(string(category), "ok").Inc()

	if g.cache != nil {
		if err := g.cache.Set(ctx, cacheKey(category), feed.Body, g.ttl); err != nil {
			g.logger.Warn("sitemap cache write failed", "category", category, "error", err)
		}
	}
	return feed, nil
}

// collect pages through popular content until the limit, an empty page or the last page.
func (g *Generator) collect(ctx context.Context, ct models.ContentType) ([]models.Content, error) {
	seen := make(map[string]struct{}, g.limit)
	items := make([]models.Content, 0, min(g.limit, g.pageSize*4))

	for page := 1; len(items) < g.limit; page++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		result, err := g.source.Popular(ctx, ct, page, g.pageSize)
		if err != nil {
			return nil, err
		}
		if result == nil || len(result.Items) == 0 {
			break
		}

		for _, c := range result.Items {
			if c.ID == "" {
				continue
			}
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			items = append(items, c)
			if len(items) == g.limit {
				break
			}
		}

		if result.Last() {
			break
		}
	}
	return items, nil
}

// Index renders the sitemap index. Content feeds are resolved concurrently so their lastmod
// reflects the current build.
func (g *Generator) Index(ctx context.Context) ([]byte, error) {
	categories := Categories()
	feeds := make([]*Feed, len(categories))

	eg, ectx := errgroup.WithContext(ctx)
	for i, c := range categories {
		eg.Go(func() error {
			feed, err := g.Feed(ectx, c)
			if err != nil {
				return err
			}
			feeds[i] = feed
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	lastmod := g.now().UTC().Format(dateLayout)
	index := sitemapIndex{XMLNS: xmlnsSitemap}
	for i, c := range categories {
		if feeds[i] == nil {
			continue
		}
		index.Sitemaps = append(index.Sitemaps, indexEntry{Loc: g.siteURL + c.Path(), LastMod: lastmod})
	}
	return encode(index)
}

func (g *Generator) staticEntries(now time.Time) []urlEntry {
	entries := make([]urlEntry, 0, len(g.staticPages))
	for _, p := range g.staticPages {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		priority := "0.8"
		if p == "/" {
			priority = "1.0"
		}
		entries = append(entries, urlEntry{
			Loc:        g.siteURL + p,
			LastMod:    now.Format(dateLayout),
			ChangeFreq: "daily",
			Priority:   priority,
		})
	}
	return entries
}

func (g *Generator) contentEntries(items []models.Content) []urlEntry {
	entries := make([]urlEntry, 0, len(items))
	for _, c := range items {
		e := urlEntry{Loc: g.siteURL + c.Path(), ChangeFreq: "weekly", Priority: "0.6"}
		if !c.UpdatedAt.IsZero() {
			e.LastMod = c.UpdatedAt.UTC().Format(dateLayout)
		}
		if c.PosterURL != "" {
			e.Images = []imageEntry{{Loc: c.PosterURL, Title: c.Title}}
		}
		entries = append(entries, e)
	}
	return entries
}

func (g *Generator) render(category Category, entries []urlEntry, fallback bool, now time.Time) (*Feed, error) {
	body, err := encode(urlSet{XMLNS: xmlnsSitemap, XMLNSImage: xmlnsImage, URLs: entries})
	if err != nil {
		return nil, err
	}
	return &Feed{Category: category, Body: body, URLs: len(entries), Fallback: fallback, GeneratedAt: now}, nil
}

// Robots renders robots.txt for siteURL.
func Robots(siteURL string) []byte {
	siteURL = strings.TrimRight(siteURL, "/")

	var b bytes.Buffer
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("Disallow: /auth/\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sitemap: %s/sitemap.xml\n", siteURL)
	return b.Bytes()
}
