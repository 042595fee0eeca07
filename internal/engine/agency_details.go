package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/logging"
	"github.com/spendview/spendview/internal/query"
)

// AgencyQuery is the user-controlled state of the reporting table.
type AgencyQuery struct {
	Agency string `json:"agency" yaml:"agency"`
	Page   int    `json:"page"   yaml:"page"`
	Limit  int    `json:"limit"  yaml:"limit"`
	Sort   string `json:"sort"   yaml:"sort"`
	Order  string `json:"order"  yaml:"order"`
}

// DefaultAgencyQuery sorts by budget authority, largest first, ten rows a page.
func DefaultAgencyQuery() AgencyQuery {
	return AgencyQuery{
		Page:  query.DefaultPage,
		Limit: query.DefaultLimit,
		Sort:  api.SortBudgetAuthority,
		Order: query.SortOrderDesc,
	}
}

// Params converts q into request params.
func (q AgencyQuery) Params() query.Params {
	p := query.NewParams().
		WithSort(q.Sort, q.Order).
		WithPath(api.PathToptierCode, q.Agency)
	p.Page = q.Page
	p.Limit = q.Limit
	return p
}

// ValidateReportingSort checks field against the reporting table columns and
// normalizes order. An empty order means descending.
func ValidateReportingSort(field, order string) (string, error) {
	if !slices.Contains(api.ReportingSortFields, field) {
		return "", fmt.Errorf("%w: %q (valid: %s)",
			query.ErrInvalidSortField, field, strings.Join(api.ReportingSortFields, ", "))
	}
	order = strings.ToLower(order)
	switch order {
	case "":
		return query.SortOrderDesc, nil
	case query.SortOrderAsc, query.SortOrderDesc:
		return order, nil
	default:
		return "", fmt.Errorf("%w: got %q", query.ErrInvalidSortOrder, order)
	}
}

// AgencyDetails pages and sorts an agency's reporting periods.
//
// Changing the agency, sort or page size returns to page 1 and issues a single
// request. Nothing is requested until an agency is set.
type AgencyDetails struct {
	ctrl   *fetch.Controller[api.ReportingOverviewPage]
	notify *notifier
	logger zerolog.Logger

	// mu serializes query changes with their submits.
	mu    sync.Mutex
	query AgencyQuery

	metaMu  sync.Mutex
	meta    query.Meta
	hasMeta bool
}

// NewAgencyDetails creates the view with DefaultAgencyQuery.
func NewAgencyDetails(opts ViewOptions) (*AgencyDetails, error) {
	v := &AgencyDetails{
		notify: newNotifier(),
		logger: logging.ComponentLogger(opts.Logger, "agency_details"),
		query:  DefaultAgencyQuery(),
	}
	ctrl, err := newController(opts, api.EndpointReportingOverview, v.notify, v.recordMeta)
	if err != nil {
		return nil, err
	}
	v.ctrl = ctrl
	return v, nil
}

func (v *AgencyDetails) recordMeta(s fetch.ViewState[api.ReportingOverviewPage]) {
	if !s.IsLoaded() {
		return
	}
	v.metaMu.Lock()
	defer v.metaMu.Unlock()
	v.meta = s.Data.PageMetadata
	v.hasMeta = true
}

func (v *AgencyDetails) clearMeta() {
	v.metaMu.Lock()
	defer v.metaMu.Unlock()
	v.meta = query.Meta{}
	v.hasMeta = false
}

// Meta returns the page metadata of the last loaded response for the current
// agency, sort and page size.
func (v *AgencyDetails) Meta() (query.Meta, bool) {
	v.metaMu.Lock()
	defer v.metaMu.Unlock()
	return v.meta, v.hasMeta
}

// Query returns the current query.
func (v *AgencyDetails) Query() AgencyQuery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// SetAgency selects an agency by toptier code and loads page 1.
func (v *AgencyDetails) SetAgency(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrEmptyAgency
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query.Agency = code
	v.query.Page = query.DefaultPage
	v.resubmitLocked()
	return nil
}

// SetQuery replaces the whole query and issues a single request for it.
func (v *AgencyDetails) SetQuery(q AgencyQuery) error {
	q.Agency = strings.TrimSpace(q.Agency)
	if q.Agency == "" {
		return ErrEmptyAgency
	}
	order, err := ValidateReportingSort(q.Sort, q.Order)
	if err != nil {
		return err
	}
	q.Order = order
	if q.Limit < query.MinLimit || q.Limit > query.MaxLimit {
		return fmt.Errorf("%w: got %d", query.ErrInvalidLimit, q.Limit)
	}
	if q.Page < 1 {
		return fmt.Errorf("%w: got %d", query.ErrInvalidPage, q.Page)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.query = q
	v.resubmitLocked()
	return nil
}

// SetSort changes the sort column and order and loads page 1.
func (v *AgencyDetails) SetSort(field, order string) error {
	order, err := ValidateReportingSort(field, order)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query.Sort = field
	v.query.Order = order
	v.query.Page = query.DefaultPage
	v.resubmitLocked()
	return nil
}

// ToggleSort sorts by field, flipping the order when field is already the
// sort column.
func (v *AgencyDetails) ToggleSort(field string) error {
	q := v.Query()
	order := query.SortOrderDesc
	if q.Sort == field {
		order = query.ToggleOrder(q.Order)
	}
	return v.SetSort(field, order)
}

// SetLimit changes the page size and loads page 1.
func (v *AgencyDetails) SetLimit(limit int) error {
	if limit < query.MinLimit || limit > query.MaxLimit {
		return fmt.Errorf("%w: got %d", query.ErrInvalidLimit, limit)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query.Limit = limit
	v.query.Page = query.DefaultPage
	v.resubmitLocked()
	return nil
}

// SetPage loads page.
func (v *AgencyDetails) SetPage(page int) error {
	if page < 1 {
		return fmt.Errorf("%w: got %d", query.ErrInvalidPage, page)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.query.Page = page
	v.submitLocked()
	return nil
}

// NextPage moves forward one page. It returns false on the last page or
// before the first response for the current query has loaded.
func (v *AgencyDetails) NextPage() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	meta, ok := v.Meta()
	if !ok || v.query.Page >= meta.TotalPages() {
		return false
	}
	v.query.Page++
	v.submitLocked()
	return true
}

// PrevPage moves back one page. It returns false on page 1.
func (v *AgencyDetails) PrevPage() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.query.Page <= 1 {
		return false
	}
	v.query.Page--
	v.submitLocked()
	return true
}

// Refresh re-requests the current page.
func (v *AgencyDetails) Refresh() bool {
	return v.ctrl.Refresh()
}

// resubmitLocked drops the page metadata and submits, unless the query is
// unchanged from the last request.
func (v *AgencyDetails) resubmitLocked() {
	if v.query.Agency == "" {
		return
	}
	if last, ok := v.ctrl.Params(); ok && last.Equal(v.query.Params()) {
		return
	}
	v.clearMeta()
	v.submitLocked()
}

func (v *AgencyDetails) submitLocked() {
	if v.query.Agency == "" {
		return
	}
	if v.ctrl.Submit(v.query.Params()) {
		v.logger.Debug().
			Str("agency", v.query.Agency).
			Int("page", v.query.Page).
			Int("limit", v.query.Limit).
			Str("sort", v.query.Sort).
			Str("order", v.query.Order).
			Msg("reporting overview requested")
	}
}

// State returns the reporting table state.
func (v *AgencyDetails) State() fetch.ViewState[api.ReportingOverviewPage] {
	return v.ctrl.State()
}

// Snapshot returns the state and a channel closed on the next change.
func (v *AgencyDetails) Snapshot() (fetch.ViewState[api.ReportingOverviewPage], <-chan struct{}) {
	ch := v.notify.wait()
	return v.ctrl.State(), ch
}

// Await blocks until the current request settles. Meta reflects a loaded
// result once Await returns it.
func (v *AgencyDetails) Await(ctx context.Context) (fetch.ViewState[api.ReportingOverviewPage], error) {
	s, err := v.ctrl.Await(ctx)
	if err != nil || !s.IsLoaded() {
		return s, err
	}
	// Under mu a loaded state always belongs to the current query.
	v.mu.Lock()
	v.recordMeta(v.ctrl.State())
	v.mu.Unlock()
	return s, nil
}

// Rows formats the loaded page, or returns nil when nothing is loaded.
func (v *AgencyDetails) Rows() []api.ReportingPeriodRow {
	s := v.ctrl.State()
	if !s.IsLoaded() {
		return nil
	}
	return api.ReportingPeriodRows(s.Data.Results)
}

// Close cancels any live request and releases waiters.
func (v *AgencyDetails) Close() {
	v.ctrl.Dispose()
	v.notify.close()
}
