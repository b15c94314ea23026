package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/reeltrack/internal/metrics"
	"github.com/desertthunder/reeltrack/internal/repositories"
	"github.com/desertthunder/reeltrack/internal/server"
	"github.com/desertthunder/reeltrack/internal/services"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/desertthunder/reeltrack/internal/sitemap"
	"github.com/desertthunder/reeltrack/internal/tasks"
	"github.com/desertthunder/reeltrack/internal/telemetry"
	"github.com/desertthunder/reeltrack/internal/web"
)

const (
	purgeInterval     = time.Hour
	minWarmInterval   = 5 * time.Minute
	shutdownTelemetry = 5 * time.Second
)

// cache is satisfied by both [services.MemoryCache] and [services.RedisCache].
type cache interface {
	services.ResponseCache
	sitemap.Cache
}

// openCache returns redis when configured and reachable, otherwise an in-process cache.
func (r *Runner) openCache(ctx context.Context) (cache, func()) {
	if url := r.config.Redis.URL; url != "" {
		client, err := services.OpenRedis(ctx, url)
		if err == nil {
			r.logger.Info("using redis cache")
			return services.NewRedisCache(client, "reeltrack:"), func() { client.Close() }
		}
		r.logger.Warn("redis unavailable, falling back to memory cache", "error", err)
	}
	return services.NewMemoryCache(0), func() {}
}

// warmInterval rebuilds feeds at half their cache lifetime.
func warmInterval(ttl time.Duration) time.Duration {
	return max(ttl/2, minWarmInterval)
}

// Serve starts the web server and its background jobs, and blocks until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config
	addr := cmd.String("addr")
	if addr == "" {
		addr = cfg.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, "reeltrack", r.logger)
	if err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTelemetry)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			r.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	db, err := shared.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store, closeCache := r.openCache(ctx)
	defer closeCache()

	backend := services.NewBackendService(cfg.Backend, r.logger, services.WithResponseCache(store))
	sitemaps := sitemap.NewGenerator(backend, cfg.Server.SiteURL, cfg.Sitemap, r.logger,
		sitemap.WithCache(store, cfg.Sitemap.CacheTTL))
	sessions := repositories.NewSessionRepository(db)
	states := repositories.NewOAuthStateRepository(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	providers := services.NewOAuthProviders(cfg.OAuth)
	handler, err := web.New(web.Deps{
		Backend:   backend,
		Sessions:  sessions,
		States:    states,
		Providers: providers,
		Sitemaps:  sitemaps,
		Registry:  registry,
		Config:    cfg,
		Logger:    r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	r.logger.Info("starting reeltrack",
		"addr", addr, "site", cfg.Server.SiteURL, "backend", backend.BaseURL(), "oauth", services.ProviderNames(providers))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, addr, handler, r.logger)
	})
	if !cmd.Bool("no-warm") {
		g.Go(func() error {
			return tasks.NewSitemapWarmer(sitemaps, warmInterval(cfg.Sitemap.CacheTTL), r.logger).Run(gctx, nil)
		})
	}
	g.Go(func() error {
		r.purgeExpired(gctx, sessions, states)
		return nil
	})
	return g.Wait()
}

// purgeExpired deletes expired sessions and OAuth states every purgeInterval until ctx ends.
func (r *Runner) purgeExpired(ctx context.Context, sessions *repositories.SessionRepository, states *repositories.OAuthStateRepository) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s, err := sessions.PurgeExpired(now)
			if err != nil {
				r.logger.Warn("session purge failed", "error", err)
			}
			o, err := states.PurgeExpired(now)
			if err != nil {
				r.logger.Warn("oauth state purge failed", "error", err)
			}
			if s+o > 0 {
				r.logger.Info("purged expired records", "sessions", s, "oauth_states", o)
			}
		}
	}
}
