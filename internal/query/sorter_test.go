package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string
	Count int
}

func newRowSorter() *Sorter[row] {
	return NewSorter(map[string]Less[row]{
		"name":  func(a, b row) bool { return a.Name < b.Name },
		"count": func(a, b row) bool { return a.Count < b.Count },
	})
}

func TestSorter_Sort(t *testing.T) {
	s := newRowSorter()
	items := []row{{"b", 2}, {"a", 3}, {"c", 1}, {"d", 2}}

	t.Run("asc", func(t *testing.T) {
		got := s.Sort(items, "name", SortOrderAsc)
		assert.Equal(t, []row{{"a", 3}, {"b", 2}, {"c", 1}, {"d", 2}}, got)
	})

	t.Run("desc keeps ties stable", func(t *testing.T) {
		got := s.Sort(items, "count", SortOrderDesc)
		assert.Equal(t, []row{{"a", 3}, {"b", 2}, {"d", 2}, {"c", 1}}, got)
	})

	t.Run("unknown field keeps order", func(t *testing.T) {
		got := s.Sort(items, "missing", SortOrderAsc)
		assert.Equal(t, items, got)
	})

	t.Run("input untouched", func(t *testing.T) {
		_ = s.Sort(items, "name", SortOrderAsc)
		assert.Equal(t, "b", items[0].Name)
	})
}

func TestSorter_Validate(t *testing.T) {
	s := newRowSorter()
	assert.NoError(t, s.Validate("name"))

	err := s.Validate("nope")
	require.ErrorIs(t, err, ErrInvalidSortField)
	assert.Contains(t, err.Error(), "count")
	assert.Equal(t, []string{"count", "name"}, s.ValidFields())
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name  string
		page  int
		limit int
		want  []int
	}{
		{name: "first page", page: 1, limit: 3, want: []int{1, 2, 3}},
		{name: "last partial", page: 3, limit: 3, want: []int{7}},
		{name: "past end caps to last", page: 9, limit: 3, want: []int{7}},
		{name: "zero page treated as first", page: 0, limit: 2, want: []int{1, 2}},
		{name: "no limit returns all", page: 1, limit: 0, want: items},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Page(items, tt.page, tt.limit))
		})
	}

	assert.Empty(t, Page([]int{}, 1, 10))
}

func TestPageAndSort(t *testing.T) {
	s := newRowSorter()
	items := []row{{"b", 2}, {"a", 3}, {"c", 1}}
	got := PageAndSort(s, items, 1, 2, "count", SortOrderAsc)
	assert.Equal(t, []row{{"c", 1}, {"b", 2}}, got)
}
