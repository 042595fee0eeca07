// Package listview renders a scrolling, selectable window over a slice of
// rows for Bubble Tea screens. Only the rows inside the viewport are
// rendered.
package listview
