package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/spendview/spendview/internal/engine"
)

// Run browses agency in the alternate screen until the user quits or ctx
// ends. Every view is disposed before Run returns.
func Run(ctx context.Context, opts engine.ViewOptions, agency string) error {
	m, err := NewAgencyModel(ctx, opts, agency)
	if err != nil {
		return err
	}
	defer m.closeViews()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(AgencyModel); ok {
		fm.closeViews()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
