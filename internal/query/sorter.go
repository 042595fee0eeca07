package query

import (
	"fmt"
	"maps"
	"slices"
	"sort"
)

// Less reports whether a sorts before b in ascending order.
type Less[T any] func(a, b T) bool

// Sorter sorts items client-side by a validated field name.
type Sorter[T any] struct {
	fields map[string]Less[T]
}

// NewSorter creates a sorter from a field -> comparator map.
func NewSorter[T any](fields map[string]Less[T]) *Sorter[T] {
	return &Sorter[T]{fields: maps.Clone(fields)}
}

// IsValidField checks if the field can be sorted on.
func (s *Sorter[T]) IsValidField(field string) bool {
	_, ok := s.fields[field]
	return ok
}

// ValidFields returns the sortable fields in stable order.
func (s *Sorter[T]) ValidFields() []string {
	return slices.Sorted(maps.Keys(s.fields))
}

// Sort returns a sorted copy of items. An unknown field returns a copy in
// original order; the input is never modified.
func (s *Sorter[T]) Sort(items []T, field, order string) []T {
	sorted := slices.Clone(items)
	less, ok := s.fields[field]
	if !ok {
		return sorted
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		// For descending order, swap i and j in comparisons to maintain stability
		if order == SortOrderDesc {
			i, j = j, i
		}
		return less(sorted[i], sorted[j])
	})
	return sorted
}

// Validate returns ErrInvalidSortField when field is not sortable.
func (s *Sorter[T]) Validate(field string) error {
	if !s.IsValidField(field) {
		return fmt.Errorf("%w: %q (valid: %v)", ErrInvalidSortField, field, s.ValidFields())
	}
	return nil
}

// Page returns one 1-based page of items. A page past the end is capped to
// the last available page.
func Page[T any](items []T, page, limit int) []T {
	if len(items) == 0 {
		return []T{}
	}
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * limit
	if offset >= len(items) {
		offset = ((len(items) - 1) / limit) * limit
	}

	end := min(offset+limit, len(items))
	return items[offset:end]
}

// PageAndSort sorts all items then returns the requested page.
func PageAndSort[T any](s *Sorter[T], items []T, page, limit int, field, order string) []T {
	return Page(s.Sort(items, field, order), page, limit)
}
