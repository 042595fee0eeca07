package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/logging"
	"github.com/spendview/spendview/internal/query"
)

// historyFetchLimit is the page size of the single history request. Sorting
// and paging happen client-side over this one page.
const historyFetchLimit = 100

// PublicationQuery is the client-side paging and sorting of a history table.
type PublicationQuery struct {
	Agency       string `json:"agency"       yaml:"agency"`
	FiscalYear   int    `json:"fiscalYear"   yaml:"fiscal_year"`
	FiscalPeriod int    `json:"fiscalPeriod" yaml:"fiscal_period"`
	Page         int    `json:"page"         yaml:"page"`
	Limit        int    `json:"limit"        yaml:"limit"`
	Sort         string `json:"sort"         yaml:"sort"`
	Order        string `json:"order"        yaml:"order"`
}

// DefaultPublicationQuery shows the newest publications first.
func DefaultPublicationQuery() PublicationQuery {
	return PublicationQuery{
		Page:  query.DefaultPage,
		Limit: query.DefaultLimit,
		Sort:  api.SortPublicationDate,
		Order: query.SortOrderDesc,
	}
}

// PublicationDatesView is what the publication dates table renders.
type PublicationDatesView struct {
	Query   PublicationQuery         `json:"query"   yaml:"query"`
	Status  fetch.Status             `json:"-"       yaml:"-"`
	Message string                   `json:"message" yaml:"message,omitempty"`
	Rows    []api.PublicationDateRow `json:"rows"    yaml:"rows"`
	Meta    query.Meta               `json:"meta"    yaml:"meta"`

	// SubmissionDue and CertificationDue are formatted deadlines, or
	// api.Missing when the calendar is unavailable.
	SubmissionDue    string `json:"submissionDue"    yaml:"submission_due"`
	CertificationDue string `json:"certificationDue" yaml:"certification_due"`
}

// PublicationDates shows the submission history of one agency period.
//
// The history is fetched once per period; sort, order, page and limit only
// reshape it locally. The submission calendar is fetched by a second
// controller and only feeds the deadline header.
type PublicationDates struct {
	history *fetch.Controller[api.SubmissionHistoryPage]
	periods *fetch.Controller[api.SubmissionPeriodsResponse]
	notify  *notifier
	logger  zerolog.Logger

	mu    sync.Mutex
	query PublicationQuery
}

// NewPublicationDates creates the view with DefaultPublicationQuery.
func NewPublicationDates(opts ViewOptions) (*PublicationDates, error) {
	v := &PublicationDates{
		notify: newNotifier(),
		logger: logging.ComponentLogger(opts.Logger, "publication_dates"),
		query:  DefaultPublicationQuery(),
	}

	history, err := newController[api.SubmissionHistoryPage](opts, api.EndpointSubmissionHistory, v.notify, nil)
	if err != nil {
		return nil, err
	}
	periods, err := newController(opts, api.EndpointSubmissionPeriods, v.notify, v.logPeriodsFailure)
	if err != nil {
		history.Dispose()
		return nil, err
	}
	v.history = history
	v.periods = periods
	return v, nil
}

func (v *PublicationDates) logPeriodsFailure(s fetch.ViewState[api.SubmissionPeriodsResponse]) {
	if s.HasError() {
		v.logger.Warn().Str("error", s.Message).Msg("submission periods unavailable, deadlines hidden")
	}
}

// SetPeriod selects the agency period and fetches its history. The local
// page resets to 1.
func (v *PublicationDates) SetPeriod(agency string, fiscalYear, fiscalPeriod int) error {
	agency = strings.TrimSpace(agency)
	switch {
	case agency == "":
		return ErrEmptyAgency
	case fiscalYear < minFiscalYear:
		return fmt.Errorf("%w: got %d", ErrInvalidYear, fiscalYear)
	case fiscalPeriod < 2 || fiscalPeriod > 12:
		return fmt.Errorf("%w: got %d", ErrInvalidPeriod, fiscalPeriod)
	}

	v.mu.Lock()
	v.query.Agency = agency
	v.query.FiscalYear = fiscalYear
	v.query.FiscalPeriod = fiscalPeriod
	v.query.Page = query.DefaultPage
	v.mu.Unlock()

	params := query.Params{Page: query.DefaultPage, Limit: historyFetchLimit}.
		WithPath(api.PathToptierCode, agency).
		WithPath(api.PathFiscalYear, strconv.Itoa(fiscalYear)).
		WithPath(api.PathFiscalPeriod, strconv.Itoa(fiscalPeriod))
	if v.history.Submit(params) {
		v.logger.Debug().
			Str("agency", agency).
			Int("fiscal_year", fiscalYear).
			Int("fiscal_period", fiscalPeriod).
			Msg("submission history requested")
	}
	// The calendar does not depend on the period; identical params dedupe.
	v.periods.Submit(query.Params{})
	v.notify.broadcast()
	return nil
}

// SetSort sorts the history locally and returns to page 1.
func (v *PublicationDates) SetSort(field, order string) error {
	if err := api.PublicationDateSorter.Validate(field); err != nil {
		return err
	}
	order = strings.ToLower(order)
	if order == "" {
		order = query.SortOrderDesc
	}
	if order != query.SortOrderAsc && order != query.SortOrderDesc {
		return fmt.Errorf("%w: got %q", query.ErrInvalidSortOrder, order)
	}
	v.update(func(q *PublicationQuery) {
		q.Sort = field
		q.Order = order
		q.Page = query.DefaultPage
	})
	return nil
}

// ToggleSort sorts by field, flipping the order when it is already active.
func (v *PublicationDates) ToggleSort(field string) error {
	q := v.Query()
	order := query.SortOrderDesc
	if q.Sort == field {
		order = query.ToggleOrder(q.Order)
	}
	return v.SetSort(field, order)
}

// SetLimit changes the local page size and returns to page 1.
func (v *PublicationDates) SetLimit(limit int) error {
	if limit < query.MinLimit || limit > query.MaxLimit {
		return fmt.Errorf("%w: got %d", query.ErrInvalidLimit, limit)
	}
	v.update(func(q *PublicationQuery) {
		q.Limit = limit
		q.Page = query.DefaultPage
	})
	return nil
}

// SetPage shows page. Pages past the end show the last page.
func (v *PublicationDates) SetPage(page int) error {
	if page < 1 {
		return fmt.Errorf("%w: got %d", query.ErrInvalidPage, page)
	}
	v.update(func(q *PublicationQuery) { q.Page = page })
	return nil
}

// NextPage moves forward when there is a next page.
func (v *PublicationDates) NextPage() bool {
	meta := v.View().Meta
	if !meta.HasNext {
		return false
	}
	v.update(func(q *PublicationQuery) { q.Page = meta.Page + 1 })
	return true
}

// PrevPage moves back when not on page 1.
func (v *PublicationDates) PrevPage() bool {
	meta := v.View().Meta
	if !meta.HasPrevious {
		return false
	}
	v.update(func(q *PublicationQuery) { q.Page = meta.Page - 1 })
	return true
}

// Refresh re-fetches the history and the calendar.
func (v *PublicationDates) Refresh() bool {
	ok := v.history.Refresh()
	v.periods.Refresh()
	return ok
}

func (v *PublicationDates) update(fn func(*PublicationQuery)) {
	v.mu.Lock()
	fn(&v.query)
	v.mu.Unlock()
	v.notify.broadcast()
}

// Query returns the current query.
func (v *PublicationDates) Query() PublicationQuery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// HistoryState returns the raw history state.
func (v *PublicationDates) HistoryState() fetch.ViewState[api.SubmissionHistoryPage] {
	return v.history.State()
}

// PeriodsState returns the raw calendar state.
func (v *PublicationDates) PeriodsState() fetch.ViewState[api.SubmissionPeriodsResponse] {
	return v.periods.State()
}

// View builds the rendered table from both controllers.
func (v *PublicationDates) View() PublicationDatesView {
	q := v.Query()
	hs := v.history.State()

	out := PublicationDatesView{
		Query:            q,
		Status:           hs.Status,
		Message:          hs.Message,
		SubmissionDue:    api.Missing,
		CertificationDue: api.Missing,
	}

	if hs.IsLoaded() {
		dates := api.NormalizePublicationDates(hs.Data.Results)
		total := len(dates)
		page := q.Page
		if pages := (query.Meta{Total: total, Limit: q.Limit}).TotalPages(); pages > 0 && page > pages {
			page = pages
		}
		out.Query.Page = page
		out.Meta = query.NewMeta(page, q.Limit, total)
		out.Rows = api.FormatPublicationDates(
			query.PageAndSort(api.PublicationDateSorter, dates, page, q.Limit, q.Sort, q.Order))
	}

	if ps := v.periods.State(); ps.IsLoaded() {
		if d, ok := api.SubmissionDeadlines(q.FiscalYear, q.FiscalPeriod, ps.Data.AvailablePeriods); ok {
			out.SubmissionDue = api.FormatDate(d.SubmissionDueDate)
			out.CertificationDue = api.FormatDate(d.CertificationDueDate)
		}
	}
	return out
}

// Snapshot returns the view and a channel closed on the next change.
func (v *PublicationDates) Snapshot() (PublicationDatesView, <-chan struct{}) {
	ch := v.notify.wait()
	return v.View(), ch
}

// Await blocks until both the history and the calendar have settled.
func (v *PublicationDates) Await(ctx context.Context) (PublicationDatesView, error) {
	if _, err := v.history.Await(ctx); err != nil {
		return v.View(), err
	}
	if _, err := v.periods.Await(ctx); err != nil {
		return v.View(), err
	}
	return v.View(), nil
}

// Close disposes both controllers.
func (v *PublicationDates) Close() {
	v.history.Dispose()
	v.periods.Dispose()
	v.notify.close()
}
