package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/spendview/spendview/internal/fetch"
)

// View renders the current screen (Bubble Tea interface).
func (m AgencyModel) View() string {
	switch m.state {
	case ViewStateQuitting:
		return ""
	case ViewStateDetail:
		return m.pubs.View()
	default:
		return m.renderListView()
	}
}

func (m AgencyModel) renderListView() string {
	sections := []string{m.renderHeader(), ""}

	state := m.details.State()
	switch {
	case state.HasError():
		sections = append(sections, CriticalStyle.Render("Error: "+state.Message))
	case state.Status == fetch.StatusIdle, state.IsLoading() && len(m.table.Rows()) == 0:
		sections = append(sections, RenderLoading(m.loading))
	default:
		sections = append(sections, m.table.View())
		if state.IsLoading() {
			sections = append(sections, RenderLoading(m.loading))
		}
	}

	sections = append(sections, "", m.renderStatusBar())
	if m.prompting {
		sections = append(sections, m.input.View())
	}
	if m.err != nil {
		sections = append(sections, WarningStyle.Render(m.err.Error()))
	}
	sections = append(sections,
		SubtleStyle.Render("n/p page | s sort | o order | +/- rows | enter publications | a agency | r refresh | q quit"))

	return lipgloss.NewStyle().MaxWidth(m.width).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m AgencyModel) renderHeader() string {
	state := m.overview.State()
	switch {
	case state.IsLoaded():
		a := state.Data
		title := HeaderStyle.Render(fmt.Sprintf("%s (%s)", a.Name, a.Abbreviation))
		info := fmt.Sprintf("%s %s   %s %d   %s %s",
			LabelStyle.Render("Toptier code:"), ValueStyle.Render(a.ToptierCode),
			LabelStyle.Render("Sub-agencies:"), a.SubtierAgencyCount,
			LabelStyle.Render("Website:"), ValueStyle.Render(a.Website))
		return BoxStyle.Width(max(m.width-borderPadding, 1)).Render(title + "\n" + info)
	case state.HasError():
		return CriticalStyle.Render("Agency " + m.agency + ": " + state.Message)
	default:
		return HeaderStyle.Render("Agency " + m.agency)
	}
}

func (m AgencyModel) renderStatusBar() string {
	q := m.details.Query()
	var b strings.Builder
	fmt.Fprintf(&b, "Sort: %s %s | Rows: %d", q.Sort, q.Order, q.Limit)
	if meta, ok := m.details.Meta(); ok {
		fmt.Fprintf(&b, " | Page %d/%d | %d periods", q.Page, max(meta.TotalPages(), 1), meta.Total)
	} else {
		fmt.Fprintf(&b, " | Page %d", q.Page)
	}
	return SubtleStyle.Render(b.String())
}
