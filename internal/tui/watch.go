package tui

import tea "github.com/charmbracelet/bubbletea"

// source names the view a change came from.
type source int

const (
	sourceOverview source = iota
	sourceDetails
	sourcePublications
)

// changedMsg reports that a view transitioned.
type changedMsg struct {
	source source
}

// waitFor returns a command that delivers changedMsg once ch closes. The
// channel must be taken from the view's Snapshot before its state is read so
// no transition is missed.
func waitFor(src source, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{source: src}
	}
}
