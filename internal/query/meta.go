package query

// Meta mirrors the API's page_metadata object.
type Meta struct {
	Page        int    `json:"page"                yaml:"page"`
	Total       int    `json:"total"               yaml:"total"`
	Limit       int    `json:"limit"               yaml:"limit"`
	Next        *int   `json:"next"                yaml:"next,omitempty"`
	Previous    *int   `json:"previous"            yaml:"previous,omitempty"`
	HasNext     bool   `json:"hasNext"             yaml:"has_next"`
	HasPrevious bool   `json:"hasPrevious"         yaml:"has_previous"`
	Message     string `json:"message,omitempty"   yaml:"message,omitempty"`
}

// TotalPages returns the number of pages for Total items at Limit per page.
func (m Meta) TotalPages() int {
	if m.Limit <= 0 || m.Total <= 0 {
		return 0
	}
	return (m.Total + m.Limit - 1) / m.Limit
}

// NewMeta builds metadata for a locally paged slice of total items.
func NewMeta(page, limit, total int) Meta {
	m := Meta{Page: page, Limit: limit, Total: total}
	pages := m.TotalPages()
	m.HasPrevious = page > 1
	m.HasNext = page < pages
	if m.HasPrevious {
		prev := page - 1
		m.Previous = &prev
	}
	if m.HasNext {
		next := page + 1
		m.Next = &next
	}
	return m
}
