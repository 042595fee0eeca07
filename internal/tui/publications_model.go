package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/engine"
	"github.com/spendview/spendview/internal/fetch"
	listview "github.com/spendview/spendview/internal/tui/list"
)

// publicationSortFields are cycled by the sort key.
var publicationSortFields = []string{api.SortPublicationDate, api.SortCertificationDate}

const dateColumnWidth = 22

// PublicationsModel shows the submission history of one reporting period.
type PublicationsModel struct {
	view   *engine.PublicationDates
	list   *listview.Model[api.PublicationDateRow]
	title  string
	width  int
	height int
	err    error
}

// NewPublicationsModel loads the history of agency's fiscal period. The
// returned command waits for the first change.
func NewPublicationsModel(
	opts engine.ViewOptions,
	agency string,
	fiscalYear, fiscalPeriod int,
) (*PublicationsModel, tea.Cmd, error) {
	view, err := engine.NewPublicationDates(opts)
	if err != nil {
		return nil, nil, err
	}

	m := &PublicationsModel{
		view:   view,
		title:  fmt.Sprintf("Publication dates: %s", api.PeriodLabel(fiscalYear, fiscalPeriod)),
		width:  defaultWidth,
		height: defaultHeight,
	}
	m.list = listview.New[api.PublicationDateRow](nil, m.listHeight(), renderPublicationRow)

	_, ch := view.Snapshot()
	if err := view.SetPeriod(agency, fiscalYear, fiscalPeriod); err != nil {
		view.Close()
		return nil, nil, err
	}
	return m, waitFor(sourcePublications, ch), nil
}

func (m *PublicationsModel) listHeight() int {
	return max(m.height-chromeHeight, 1)
}

// Resize adapts the list to the terminal size.
func (m *PublicationsModel) Resize(width, height int) {
	m.width, m.height = width, height
	m.list.SetHeight(m.listHeight())
}

// Changed refreshes the rows after the view transitioned and waits for the
// next change.
func (m *PublicationsModel) Changed() tea.Cmd {
	v, ch := m.view.Snapshot()
	m.list.SetItems(v.Rows)
	return waitFor(sourcePublications, ch)
}

// HandleKey applies a key press. It returns true when the key was consumed.
func (m *PublicationsModel) HandleKey(msg tea.KeyMsg) bool {
	q := m.view.Query()
	m.err = nil

	switch msg.String() {
	case keyNext:
		m.view.NextPage()
	case keyPrev:
		m.view.PrevPage()
	case keySort:
		m.err = m.view.SetSort(cycle(publicationSortFields, q.Sort), q.Order)
	case keyOrder:
		m.err = m.view.ToggleSort(q.Sort)
	case keyMore:
		m.err = m.view.SetLimit(nextPageSize(q.Limit, 1))
	case keyFewer:
		m.err = m.view.SetLimit(nextPageSize(q.Limit, -1))
	case keyRefresh:
		m.view.Refresh()
	default:
		m.list.Update(msg)
		return false
	}
	return true
}

// Close disposes the underlying view.
func (m *PublicationsModel) Close() {
	m.view.Close()
}

// View renders the history table with deadlines and paging status.
func (m *PublicationsModel) View() string {
	v := m.view.View()

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(m.title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s   %s %s\n\n",
		LabelStyle.Render("Submission due:"), ValueStyle.Render(v.SubmissionDue),
		LabelStyle.Render("Certification due:"), ValueStyle.Render(v.CertificationDue))

	switch {
	case v.Status == fetch.StatusFailed:
		b.WriteString(CriticalStyle.Render("Error: " + v.Message))
	case len(v.Rows) == 0 && v.Status == fetch.StatusLoading:
		b.WriteString("Loading...")
	case len(v.Rows) == 0:
		b.WriteString(SubtleStyle.Render("No submissions for this period"))
	default:
		header := fmt.Sprintf("  %-*s%-*s", dateColumnWidth, "Publication Date", dateColumnWidth, "Certification Date")
		b.WriteString(TableHeaderStyle.Render(header))
		b.WriteString("\n")
		b.WriteString(m.list.View())
	}

	b.WriteString("\n\n")
	status := fmt.Sprintf("Page %d/%d | %d rows | Sort: %s %s",
		v.Meta.Page, max(v.Meta.TotalPages(), 1), v.Meta.Total, v.Query.Sort, v.Query.Order)
	b.WriteString(SubtleStyle.Render(status))
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render(m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render("n/p page | s sort | o order | +/- rows | r refresh | esc back"))

	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}

func renderPublicationRow(row api.PublicationDateRow, selected bool) string {
	line := fmt.Sprintf("%-*s%-*s", dateColumnWidth, row.PublicationDate, dateColumnWidth, row.CertificationDate)
	if selected {
		return TableSelectedStyle.Render("> " + line)
	}
	return "  " + line
}

// cycle returns the entry after current in fields, wrapping around.
func cycle(fields []string, current string) string {
	for i, f := range fields {
		if f == current {
			return fields[(i+1)%len(fields)]
		}
	}
	return fields[0]
}
