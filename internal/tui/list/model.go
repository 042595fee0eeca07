package listview

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// RenderFunc renders one item. selected marks the cursor row.
type RenderFunc[T any] func(item T, selected bool) string

// Model is a cursor over items that keeps the cursor inside a window of
// height rows.
type Model[T any] struct {
	items      []T
	renderFunc RenderFunc[T]
	selected   int
	offset     int
	height     int
}

// New creates a list showing height rows at a time.
func New[T any](items []T, height int, render RenderFunc[T]) *Model[T] {
	m := &Model[T]{renderFunc: render, height: max(height, 1)}
	m.SetItems(items)
	return m
}

// SetItems replaces the items, keeping the cursor in range.
func (m *Model[T]) SetItems(items []T) {
	m.items = items
	m.SetSelected(m.selected)
}

// SetHeight changes the viewport height.
func (m *Model[T]) SetHeight(height int) {
	m.height = max(height, 1)
	m.scrollToSelected()
}

// Update moves the cursor on arrow, page, home/end and j/k keys.
func (m *Model[T]) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(m.items) == 0 {
		return nil
	}

	switch key.String() {
	case "up", "k":
		m.SetSelected(m.selected - 1)
	case "down", "j":
		m.SetSelected(m.selected + 1)
	case "pgup":
		m.SetSelected(m.selected - m.height)
	case "pgdown":
		m.SetSelected(m.selected + m.height)
	case "home", "g":
		m.SetSelected(0)
	case "end", "G":
		m.SetSelected(len(m.items) - 1)
	}
	return nil
}

// View renders the rows inside the window, one per line.
func (m *Model[T]) View() string {
	if len(m.items) == 0 {
		return ""
	}
	end := min(m.offset+m.height, len(m.items))
	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderFunc(m.items[i], i == m.selected))
	}
	return strings.Join(lines, "\n")
}

// Len returns the number of items.
func (m *Model[T]) Len() int { return len(m.items) }

// Selected returns the cursor index.
func (m *Model[T]) Selected() int { return m.selected }

// Offset returns the index of the first visible row.
func (m *Model[T]) Offset() int { return m.offset }

// SetSelected moves the cursor, clamped to the items.
func (m *Model[T]) SetSelected(index int) {
	if len(m.items) == 0 {
		m.selected, m.offset = 0, 0
		return
	}
	m.selected = min(max(index, 0), len(m.items)-1)
	m.scrollToSelected()
}

// SelectedItem returns the item under the cursor, or nil when empty.
func (m *Model[T]) SelectedItem() *T {
	if len(m.items) == 0 {
		return nil
	}
	return &m.items[m.selected]
}

func (m *Model[T]) scrollToSelected() {
	switch {
	case m.selected < m.offset:
		m.offset = m.selected
	case m.selected >= m.offset+m.height:
		m.offset = m.selected - m.height + 1
	}
	m.offset = max(0, min(m.offset, len(m.items)-m.height))
}
