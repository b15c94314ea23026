package main

import (
	"context"

	"github.com/desertthunder/reeltrack/internal/formatter"
	"github.com/urfave/cli/v3"
)

// WatchlistExport writes the signed-in user's watchlist to a file.
func (r *Runner) WatchlistExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	c, err := r.authedClient(cmd)
	if err != nil {
		return err
	}

	items, err := c.Watchlist(ctx)
	if err != nil {
		return sessionError(err)
	}

	opts := formatter.ExportOptions{SiteURL: c.BaseURL()}
	if user, err := c.Me(ctx); err == nil {
		opts.Owner = user.Name
	} else {
		r.logger.Debug("could not load profile for export heading", "error", err)
	}

	path, err := formatter.WriteExport(items, format, cmd.String("output"), opts)
	if err != nil {
		return err
	}

	r.logger.Info("watchlist exported", "format", format, "items", len(items), "path", path)
	return r.writePlain("✓ Exported %d titles to %s\n", len(items), path)
}
