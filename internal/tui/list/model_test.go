package listview

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(item int, selected bool) string {
	if selected {
		return fmt.Sprintf("> %d", item)
	}
	return fmt.Sprintf("  %d", item)
}

func items(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestModel_Navigation(t *testing.T) {
	m := New(items(20), 5, render)
	assert.Equal(t, 20, m.Len())
	assert.Equal(t, 0, m.Selected())

	m.Update(key("down"))
	m.Update(key("j"))
	assert.Equal(t, 2, m.Selected())
	assert.Equal(t, 0, m.Offset())

	m.Update(key("pgdown"))
	assert.Equal(t, 7, m.Selected())
	assert.Equal(t, 3, m.Offset(), "window follows the cursor")

	m.Update(key("end"))
	assert.Equal(t, 19, m.Selected())
	assert.Equal(t, 15, m.Offset())

	m.Update(key("down"))
	assert.Equal(t, 19, m.Selected(), "cursor stops at the last row")

	m.Update(key("home"))
	m.Update(key("k"))
	assert.Equal(t, 0, m.Selected())
	assert.Equal(t, 0, m.Offset())
}

func TestModel_View(t *testing.T) {
	m := New(items(10), 3, render)
	m.SetSelected(4)

	lines := strings.Split(m.View(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"  2", "  3", "> 4"}, lines)

	item := m.SelectedItem()
	require.NotNil(t, item)
	assert.Equal(t, 4, *item)
}

func TestModel_SetItemsClampsCursor(t *testing.T) {
	m := New(items(10), 3, render)
	m.SetSelected(9)
	m.SetItems(items(4))
	assert.Equal(t, 3, m.Selected())
	assert.Equal(t, 1, m.Offset())

	m.SetItems(nil)
	assert.Nil(t, m.SelectedItem())
	assert.Empty(t, m.View())

	m.SetItems(items(2))
	m.SetHeight(10)
	assert.Equal(t, 0, m.Offset(), "short lists never scroll")
}
