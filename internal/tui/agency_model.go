package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/engine"
	"github.com/spendview/spendview/internal/logging"
	"github.com/spendview/spendview/internal/query"
)

// reportingColumnWidths match api.ReportingPeriodColumns.
var reportingColumnWidths = []int{22, 12, 12, 10, 22, 10, 10, 40}

// reportingColumnTitles are the short headers shown in the table.
var reportingColumnTitles = []string{
	"Period", "% Budget", "Updated", "Missing TAS", "Obligation Diff", "Contracts", "Assistance", "Assurance",
}

// AgencyModel is the Bubble Tea model for browsing one agency.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type AgencyModel struct {
	ctx    context.Context
	opts   engine.ViewOptions
	agency string

	overview *engine.Overview
	details  *engine.AgencyDetails
	pubs     *PublicationsModel

	// pending holds the first wait commands until Init.
	pending []tea.Cmd

	state   ViewState
	table   table.Model
	loading *LoadingState

	// prompting is true while the agency switch input has focus.
	prompting bool
	input     textinput.Model

	width   int
	height  int
	err     error
}

// NewAgencyModel starts loading the overview and reporting periods of agency.
func NewAgencyModel(ctx context.Context, opts engine.ViewOptions, agency string) (AgencyModel, error) {
	if opts.Context == nil {
		opts.Context = ctx
	}
	opts.Logger = logging.ComponentLogger(opts.Logger, "tui")

	overview, err := engine.NewOverview(opts)
	if err != nil {
		return AgencyModel{}, err
	}
	details, err := engine.NewAgencyDetails(opts)
	if err != nil {
		overview.Close()
		return AgencyModel{}, err
	}

	m := AgencyModel{
		ctx:      ctx,
		opts:     opts,
		agency:   agency,
		overview: overview,
		details:  details,
		state:    ViewStateList,
		loading:  NewLoadingState(),
		input:    newAgencyInput(),
		width:    defaultWidth,
		height:   defaultHeight,
	}
	m.table = m.buildTable()

	_, overviewCh := overview.Snapshot()
	_, detailsCh := details.Snapshot()
	if err := errors.Join(overview.SetAgency(agency), details.SetAgency(agency)); err != nil {
		m.closeViews()
		return AgencyModel{}, err
	}
	m.pending = []tea.Cmd{waitFor(sourceOverview, overviewCh), waitFor(sourceDetails, detailsCh)}
	return m, nil
}

// Init starts the spinner and the change watchers (Bubble Tea interface).
func (m AgencyModel) Init() tea.Cmd {
	return tea.Batch(append([]tea.Cmd{m.loading.Init()}, m.pending...)...)
}

// Update handles messages (Bubble Tea interface).
func (m AgencyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(m.tableHeight())
		if m.pubs != nil {
			m.pubs.Resize(msg.Width, msg.Height)
		}
		return m, nil
	case spinner.TickMsg:
		return m, m.loading.Update(msg)
	case changedMsg:
		return m.handleChanged(msg)
	case tea.KeyMsg:
		switch {
		case m.state == ViewStateDetail:
			return m.handleDetailKey(msg)
		case m.prompting:
			return m.handlePromptKey(msg)
		}
		return m.handleListKey(msg)
	}
	if m.prompting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func newAgencyInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "toptier code, e.g. 097"
	ti.Prompt = "Agency: "
	ti.CharLimit = agencyInputCharLimit
	ti.Width = agencyInputWidth
	return ti
}

// handlePromptKey edits the agency switch input. Enter switches both views
// to the typed agency; esc abandons the edit.
func (m AgencyModel) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyCtrlC:
		m.state = ViewStateQuitting
		m.closeViews()
		return m, tea.Quit
	case keyEsc:
		m.prompting = false
		m.input.Blur()
		m.input.SetValue("")
		m.table.Focus()
		return m, nil
	case keyEnter:
		code := strings.TrimSpace(m.input.Value())
		m.prompting = false
		m.input.Blur()
		m.input.SetValue("")
		m.table.Focus()
		if code == "" || code == m.agency {
			return m, nil
		}
		m.err = errors.Join(m.overview.SetAgency(code), m.details.SetAgency(code))
		if m.err == nil {
			m.agency = code
			m.table.SetCursor(0)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m AgencyModel) handleChanged(msg changedMsg) (tea.Model, tea.Cmd) {
	if m.state == ViewStateQuitting {
		return m, nil
	}
	switch msg.source {
	case sourceOverview:
		_, ch := m.overview.Snapshot()
		return m, waitFor(sourceOverview, ch)
	case sourceDetails:
		_, ch := m.details.Snapshot()
		m.table.SetRows(m.tableRows())
		return m, waitFor(sourceDetails, ch)
	case sourcePublications:
		if m.pubs == nil {
			return m, nil
		}
		return m, m.pubs.Changed()
	}
	return m, nil
}

func (m AgencyModel) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.details.Query()
	m.err = nil

	switch msg.String() {
	case keyQuit, keyCtrlC:
		m.state = ViewStateQuitting
		m.closeViews()
		return m, tea.Quit
	case keyNext:
		m.details.NextPage()
	case keyPrev:
		m.details.PrevPage()
	case keySort:
		m.err = m.details.SetSort(cycle(api.ReportingSortFields, q.Sort), query.SortOrderDesc)
	case keyOrder:
		m.err = m.details.ToggleSort(q.Sort)
	case keyMore:
		m.err = m.details.SetLimit(nextPageSize(q.Limit, 1))
	case keyFewer:
		m.err = m.details.SetLimit(nextPageSize(q.Limit, -1))
	case keyRefresh:
		m.overview.Refresh()
		m.details.Refresh()
	case keyEnter:
		return m.openPublications()
	case keyAgency:
		m.prompting = true
		m.table.Blur()
		return m, m.input.Focus()
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m AgencyModel) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit, keyCtrlC:
		m.state = ViewStateQuitting
		m.closeViews()
		return m, tea.Quit
	case keyEsc:
		m.pubs.Close()
		m.pubs = nil
		m.state = ViewStateList
		m.table.Focus()
		return m, nil
	}
	m.pubs.HandleKey(msg)
	return m, nil
}

// openPublications shows the history of the period under the cursor.
func (m AgencyModel) openPublications() (tea.Model, tea.Cmd) {
	rows := m.details.Rows()
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(rows) {
		return m, nil
	}
	row := rows[cursor]

	pubs, cmd, err := NewPublicationsModel(m.opts, m.agency, row.FiscalYear, row.FiscalPeriod)
	if err != nil {
		m.err = err
		return m, nil
	}
	pubs.Resize(m.width, m.height)
	m.pubs = pubs
	m.state = ViewStateDetail
	m.table.Blur()
	return m, cmd
}

func (m AgencyModel) closeViews() {
	if m.pubs != nil {
		m.pubs.Close()
	}
	m.overview.Close()
	m.details.Close()
}

func (m AgencyModel) tableHeight() int {
	return max(m.height-chromeHeight, 1)
}

func (m AgencyModel) tableRows() []table.Row {
	rows := m.details.Rows()
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row(r.Cells())
	}
	return out
}

func (m AgencyModel) buildTable() table.Model {
	columns := make([]table.Column, len(reportingColumnTitles))
	for i, title := range reportingColumnTitles {
		columns[i] = table.Column{Title: title, Width: reportingColumnWidths[i]}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(m.tableRows()),
		table.WithFocused(true),
		table.WithHeight(m.tableHeight()),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)
	return t
}
