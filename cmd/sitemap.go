package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/reeltrack/internal/services"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/desertthunder/reeltrack/internal/sitemap"
	"github.com/desertthunder/reeltrack/internal/tasks"
)

func (r *Runner) sitemapGenerator() *sitemap.Generator {
	backend := services.NewBackendService(r.config.Backend, r.logger, services.WithHTTPClient(r.httpClient))
	return sitemap.NewGenerator(backend, r.config.Server.SiteURL, r.config.Sitemap, r.logger,
		sitemap.WithCache(services.NewMemoryCache(0), r.config.Sitemap.CacheTTL))
}

// SitemapBuild builds one feed to stdout, or every feed plus the index and robots.txt into --dir.
func (r *Runner) SitemapBuild(ctx context.Context, cmd *cli.Command) error {
	generator := r.sitemapGenerator()
	dir := cmd.String("dir")

	if raw := cmd.StringArg("category"); raw != "" {
		category, err := sitemap.ParseCategory(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		feed, err := generator.Build(ctx, category)
		if err != nil {
			return err
		}
		if feed.Fallback {
			r.logger.Warn("backend returned nothing, wrote static pages only", "category", category)
		}
		if dir == "" {
			_, err := r.output.Write(feed.Body)
			return err
		}
		return writeFile(filepath.Join(dir, filepath.FromSlash(category.Path())), feed.Body)
	}

	if dir == "" {
		return fmt.Errorf("%w: pass a category or --dir", shared.ErrMissingArgument)
	}

	progress := make(chan tasks.ProgressUpdate, len(sitemap.Categories())+2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	result, err := tasks.NewSitemapWarmer(generator, 0, r.logger).Warm(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	for _, feed := range result.Feeds {
		if err := writeFile(filepath.Join(dir, filepath.FromSlash(feed.Category.Path())), feed.Body); err != nil {
			return err
		}
	}

	index, err := generator.Index(ctx)
	if err != nil {
		return fmt.Errorf("failed to build sitemap index: %w", err)
	}
	if err := writeFile(filepath.Join(dir, "sitemap.xml"), index); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "robots.txt"), sitemap.Robots(r.config.Server.SiteURL)); err != nil {
		return err
	}

	r.writePlainHeader("Sitemaps")
	r.writePlain("Feeds: %d built, %d fallback, %d failed\n", result.Built, result.Fallbacks, result.Failed)
	r.writePlain("Written to: %s\n", dir)
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d sitemap feeds failed", shared.ErrAPIRequest, result.Failed)
	}
	return nil
}

// SitemapRobots prints robots.txt for the configured site.
func (r *Runner) SitemapRobots(ctx context.Context, cmd *cli.Command) error {
	_, err := r.output.Write(sitemap.Robots(r.config.Server.SiteURL))
	return err
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
