package query

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Paging and sorting defaults and limits.
const (
	DefaultPage   = 1
	DefaultLimit  = 10
	MinLimit      = 1
	MaxLimit      = 100
	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
	// DefaultSortOrder matches the API: unspecified order sorts descending.
	DefaultSortOrder = SortOrderDesc
)

// Common validation errors.
var (
	ErrInvalidPage      = errors.New("page must be >= 1")
	ErrInvalidLimit     = fmt.Errorf("limit must be between %d and %d", MinLimit, MaxLimit)
	ErrInvalidSortOrder = errors.New("sort order must be 'asc' or 'desc'")
	ErrInvalidSortForm  = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'fiscal_year:desc')")
	ErrEmptySortField   = errors.New("sort field cannot be empty")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrMissingPathVar   = errors.New("missing path variable")
)

// sortPartsMax is the maximum number of parts in a sort string (field:order).
const sortPartsMax = 2

// Params is the query-parameter record for one request.
//
// Treat a Params value as immutable once submitted: the With* helpers return
// modified copies and never touch the receiver's maps.
type Params struct {
	// Page is the 1-based page number.
	Page int

	// Limit is the page size.
	Limit int

	// Sort is the API field name to sort by. Empty means server default.
	Sort string

	// Order is "asc" or "desc".
	Order string

	// Filters are sent as query-string values (filter codes).
	Filters map[string]string

	// Path fills {name} placeholders in endpoint templates.
	Path map[string]string
}

// NewParams returns params with default paging and order.
func NewParams() Params {
	return Params{
		Page:  DefaultPage,
		Limit: DefaultLimit,
		Order: DefaultSortOrder,
	}
}

// Equal reports whether p and other describe the same request.
// Nil and empty maps are equal.
func (p Params) Equal(other Params) bool {
	return p.Page == other.Page &&
		p.Limit == other.Limit &&
		p.Sort == other.Sort &&
		p.Order == other.Order &&
		maps.Equal(p.Filters, other.Filters) &&
		maps.Equal(p.Path, other.Path)
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	c := p
	c.Filters = maps.Clone(p.Filters)
	c.Path = maps.Clone(p.Path)
	return c
}

// WithPage returns a copy with the page set.
func (p Params) WithPage(page int) Params {
	c := p.Clone()
	c.Page = page
	return c
}

// WithLimit returns a copy with the limit set.
func (p Params) WithLimit(limit int) Params {
	c := p.Clone()
	c.Limit = limit
	return c
}

// WithSort returns a copy with the sort field and order set.
func (p Params) WithSort(field, order string) Params {
	c := p.Clone()
	c.Sort = field
	c.Order = order
	return c
}

// WithFilter returns a copy with the filter key set. An empty value removes it.
func (p Params) WithFilter(key, value string) Params {
	c := p.Clone()
	if value == "" {
		delete(c.Filters, key)
		return c
	}
	if c.Filters == nil {
		c.Filters = make(map[string]string)
	}
	c.Filters[key] = value
	return c
}

// WithPath returns a copy with the path variable set.
func (p Params) WithPath(name, value string) Params {
	c := p.Clone()
	if c.Path == nil {
		c.Path = make(map[string]string)
	}
	c.Path[name] = value
	return c
}

// Validate checks paging bounds and the sort order (value receiver).
// A zero Page or Limit means the endpoint is not paginated and is accepted.
func (p Params) Validate() error {
	if p.Page < 0 {
		return ErrInvalidPage
	}
	if p.Limit < 0 || p.Limit > MaxLimit {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, p.Limit)
	}
	if p.Order != "" && p.Order != SortOrderAsc && p.Order != SortOrderDesc {
		return fmt.Errorf("%w: got %q", ErrInvalidSortOrder, p.Order)
	}
	return nil
}

// Values encodes paging, sorting and filters as a query string.
// Zero paging values and an empty sort are omitted.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
		if p.Order != "" {
			v.Set("order", p.Order)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(p.Filters)) {
		v.Set(k, p.Filters[k])
	}
	return v
}

// ExpandPath substitutes {name} placeholders in template with p.Path values.
// Values are path-escaped.
func (p Params) ExpandPath(template string) (string, error) {
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		name := rest[open+1 : open+end]
		value, ok := p.Path[name]
		if !ok || value == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingPathVar, name)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+end+1:]
	}
}

// String renders params for logs.
func (p Params) String() string {
	var parts []string
	for _, k := range slices.Sorted(maps.Keys(p.Path)) {
		parts = append(parts, k+"="+p.Path[k])
	}
	if q := p.Values().Encode(); q != "" {
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}

// ParseSort parses "field" or "field:order". Order defaults to desc.
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(sortStr string) (field, order string, err error) {
	if strings.TrimSpace(sortStr) == "" {
		return "", "", ErrEmptySortField
	}

	parts := strings.Split(sortStr, ":")
	switch len(parts) {
	case 1:
		field = strings.TrimSpace(parts[0])
		order = DefaultSortOrder
	case sortPartsMax:
		field = strings.TrimSpace(parts[0])
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortForm, sortStr)
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}

	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}

	return field, order, nil
}

// ToggleOrder flips asc and desc.
func ToggleOrder(order string) string {
	if order == SortOrderAsc {
		return SortOrderDesc
	}
	return SortOrderAsc
}
