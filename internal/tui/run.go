package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/knx2openhab/dashboard/internal/dashboard"
)

// Run opens a session against deps and drives it from the terminal until
// the user quits or ctx is cancelled.
func Run(ctx context.Context, deps dashboard.Deps, opts dashboard.Options, job string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var program *tea.Program
	view := NewView(func(msg tea.Msg) { program.Send(msg) })
	session := dashboard.NewSession(ctx, "terminal", deps, view, opts)
	defer session.Close()

	program = tea.NewProgram(NewModel(ctx, session, job), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}
