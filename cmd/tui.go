package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/djq/internal/shared"
	"github.com/desertthunder/djq/internal/ui"
)

// TUI launches the terminal DJ dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	lock, err := shared.AcquireSessionLock(r.config.Dashboard.LockPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Dashboard.LogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	manager, err := r.open(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, manager, fileLogger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
