package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/reeltrack/internal/shared"
	"github.com/desertthunder/reeltrack/internal/store"
	"github.com/desertthunder/reeltrack/internal/ui"
	"github.com/urfave/cli/v3"
)

// Browse launches the interactive terminal UI. Without a saved token it browses anonymously.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	c, err := r.authedClient(cmd)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		r.logger.Info("no saved session, browsing anonymously")
		c, err = r.siteClient(cmd)
	}
	if err != nil {
		return err
	}

	app := store.NewApp()
	model := ui.NewModel(store.WithApp(ctx, app), c, ui.Config{
		SiteURL: c.BaseURL(),
		Logger:  r.logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
