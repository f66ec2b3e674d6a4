package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hurttlocker/issuelens/internal/watch"
)

// Run starts the terminal dashboard and blocks until the user quits or ctx is
// cancelled. With watchFile set, changes to the data file reload the view.
func Run(ctx context.Context, cfg Config, watchFile bool) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen(), tea.WithContext(ctx))

	if watchFile {
		w, err := watch.New(watch.Config{
			Path:     cfg.Session.DataPath,
			Cache:    cfg.Session.Cache,
			OnChange: func(string) { p.Send(FileChangedMsg{}) },
			Logger:   cfg.Logger,
		})
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running terminal dashboard: %w", err)
	}
	return nil
}
