package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/desertthunder/ytpod/internal/tasks"
	"github.com/desertthunder/ytpod/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive jobs and podcasts dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/ytpod-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	var session tasks.SessionWriter
	if r.sessions != nil {
		session = r.sessions
	}

	model := ui.NewModel(ctx, ui.ModelOpts{
		Queries:  tasks.NewQueries(r.svc, r.store, fileLogger),
		Session:  session,
		Interval: r.config.Polling.Interval(),
		MaxRows:  r.config.Forms.MaxRows,
		Logger:   fileLogger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
