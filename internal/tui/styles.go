// Package tui implements the interactive agency browser on Bubble Tea.
package tui

import "github.com/charmbracelet/lipgloss"

// Colors.
const (
	colorAccent = lipgloss.Color("39")
	colorSubtle = lipgloss.Color("241")
	colorError  = lipgloss.Color("196")
	colorWarn   = lipgloss.Color("214")
	colorValue  = lipgloss.Color("252")
	colorBorder = lipgloss.Color("63")
)

// Shared styles.
var (
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	LabelStyle    = lipgloss.NewStyle().Foreground(colorSubtle)
	ValueStyle    = lipgloss.NewStyle().Foreground(colorValue)
	SubtleStyle   = lipgloss.NewStyle().Foreground(colorSubtle).Italic(true)
	InfoStyle     = lipgloss.NewStyle().Foreground(colorAccent)
	WarningStyle  = lipgloss.NewStyle().Foreground(colorWarn)
	CriticalStyle = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	BoxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorAccent).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorSubtle)
	TableSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))
)

// Layout defaults.
const (
	defaultWidth  = 120
	defaultHeight = 30
	borderPadding = 2
	// chromeHeight is the lines used by the header, status bar and help.
	chromeHeight = 9

	agencyInputCharLimit = 8
	agencyInputWidth     = 24
)

// Key bindings.
const (
	keyQuit    = "q"
	keyCtrlC   = "ctrl+c"
	keyEnter   = "enter"
	keyEsc     = "esc"
	keyNext    = "n"
	keyPrev    = "p"
	keySort    = "s"
	keyOrder   = "o"
	keyMore    = "+"
	keyFewer   = "-"
	keyRefresh = "r"
	keyAgency  = "a"
)

// ViewState is the screen the browser shows.
type ViewState int

const (
	// ViewStateList is the reporting periods table.
	ViewStateList ViewState = iota
	// ViewStateDetail is the publication dates of one period.
	ViewStateDetail
	// ViewStateQuitting is set once the program is exiting.
	ViewStateQuitting
)

// pageSizes are the limits cycled by + and -.
var pageSizes = []int{10, 25, 50, 100}

// nextPageSize returns the neighbouring entry of pageSizes in direction dir.
func nextPageSize(current, dir int) int {
	idx := 0
	for i, size := range pageSizes {
		if size == current {
			idx = i
			break
		}
	}
	idx = min(max(idx+dir, 0), len(pageSizes)-1)
	return pageSizes[idx]
}
