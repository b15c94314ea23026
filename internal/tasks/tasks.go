package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/desertthunder/reeltrack/internal/sitemap"
)

// FeedBuilder regenerates a single sitemap feed.
type FeedBuilder interface {
	Build(ctx context.Context, category sitemap.Category) (*sitemap.Feed, error)
}

// WarmResult summarizes one warming cycle.
type WarmResult struct {
	Feeds     []*sitemap.Feed
	Built     int
	Fallbacks int
	Failed    int
	Errors    []error
	Duration  time.Duration
}

// SitemapWarmer keeps the sitemap cache populated.
type SitemapWarmer struct {
	builder    FeedBuilder
	categories []sitemap.Category
	interval   time.Duration
	logger     *log.Logger
}

// NewSitemapWarmer creates a warmer that rebuilds every category each interval.
func NewSitemapWarmer(builder FeedBuilder, interval time.Duration, logger *log.Logger) *SitemapWarmer {
	return &SitemapWarmer{
		builder:    builder,
		categories: sitemap.Categories(),
		interval:   interval,
		logger:     shared.WithLogger(logger, "component", "sitemap-warmer"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Warm rebuilds every feed once. A failing category is recorded and the cycle continues.
func (w *SitemapWarmer) Warm(ctx context.Context, progress chan<- ProgressUpdate) (*WarmResult, error) {
	if w.builder == nil {
		return nil, fmt.Errorf("%w: sitemap generator not initialized", shared.ErrServiceUnavailable)
	}

	start := time.Now()
	total := len(w.categories)
	result := &WarmResult{Feeds: make([]*sitemap.Feed, 0, total)}
	sendProgress(progress, warmStartUpdate(total))

	for i, category := range w.categories {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		feed, err := w.builder.Build(ctx, category)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", category, err))
			sendProgress(progress, feedFailedUpdate(i+1, total, category, err))
			continue
		}

		result.Built++
		if feed.Fallback {
			result.Fallbacks++
		}
		result.Feeds = append(result.Feeds, feed)
		sendProgress(progress, feedBuiltUpdate(i+1, total, feed))
	}

	result.Duration = time.Since(start)
	sendProgress(progress, warmDoneUpdate(result))
	return result, nil
}

// Run warms immediately and then on every tick until ctx is cancelled.
func (w *SitemapWarmer) Run(ctx context.Context, progress chan<- ProgressUpdate) error {
	if w.interval <= 0 {
		return fmt.Errorf("%w: warm interval must be positive", shared.ErrInvalidConfig)
	}

	w.cycle(ctx, progress)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.cycle(ctx, progress)
		}
	}
}

func (w *SitemapWarmer) cycle(ctx context.Context, progress chan<- ProgressUpdate) {
	result, err := w.Warm(ctx, progress)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("sitemap warm failed", "error", err)
		}
		return
	}
	w.logger.Info("sitemaps warmed",
		"built", result.Built,
		"fallbacks", result.Fallbacks,
		"failed", result.Failed,
		"duration", result.Duration,
	)
}
