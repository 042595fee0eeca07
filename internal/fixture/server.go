// Package fixture serves the spending API endpoints from an in-memory
// dataset. Tests point transports at it through httptest; `spendview fixture
// serve` exposes it for offline demos.
package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/query"
)

// submissionHistoryMaxLimit mirrors the API's cap on history page size.
const submissionHistoryMaxLimit = 100

// Server is a chi router over a Dataset.
type Server struct {
	router chi.Router
	data   *Dataset
	logger zerolog.Logger

	mu      sync.Mutex
	latency time.Duration
	faults  map[string]int
	hits    map[string]int
}

// Option configures a Server.
type Option func(*Server)

// WithLatency delays every response by d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithLogger sets the request logger. The default discards logs.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a server over data, or DefaultDataset when data is nil.
func New(data *Dataset, opts ...Option) *Server {
	if data == nil {
		data = DefaultDataset()
	}
	s := &Server{
		router: chi.NewRouter(),
		data:   data,
		logger: zerolog.Nop(),
		faults: make(map[string]int),
		hits:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetLatency changes the per-request delay.
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// FailWith makes requests whose path equals path answer status with a
// {"detail": ...} body until ClearFaults.
func (s *Server) FailWith(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = status
}

// ClearFaults removes every injected failure.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.faults)
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("fixture server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown fixture server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(s.faultMiddleware)

	r.Route("/api/v2", func(r chi.Router) {
		r.Get("/agency/{toptier_code}/", s.handleAgencyOverview)
		r.Route("/reporting/agencies/{toptier_code}", func(r chi.Router) {
			r.Get("/overview/", s.handleReportingOverview)
			r.Get("/{fiscal_year}/{fiscal_period}/submission_history/", s.handleSubmissionHistory)
		})
		r.Get("/references/submission_periods/", s.handleSubmissionPeriods)
	})
}

func (s *Server) handleAgencyOverview(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "toptier_code")
	agency, ok := s.data.Agencies[code]
	if !ok {
		respondDetail(w, http.StatusNotFound, fmt.Sprintf("Agency with a toptier code of '%s' does not exist", code))
		return
	}
	respondJSON(w, http.StatusOK, agency)
}

var reportingSorter = query.NewSorter(map[string]query.Less[api.ReportingPeriod]{
	api.SortFiscalYear: func(a, b api.ReportingPeriod) bool {
		if a.FiscalYear != b.FiscalYear {
			return a.FiscalYear < b.FiscalYear
		}
		return a.FiscalPeriod < b.FiscalPeriod
	},
	api.SortFiscalPeriod: func(a, b api.ReportingPeriod) bool { return a.FiscalPeriod < b.FiscalPeriod },
	api.SortBudgetAuthority: func(a, b api.ReportingPeriod) bool {
		return lessPtr(a.CurrentTotalBudgetAuthorityAmount, b.CurrentTotalBudgetAuthorityAmount)
	},
	api.SortPercentOfBudget: func(a, b api.ReportingPeriod) bool {
		return lessPtr(a.PercentOfTotalBudgetaryResources, b.PercentOfTotalBudgetaryResources)
	},
	api.SortRecentPublication: func(a, b api.ReportingPeriod) bool {
		return a.RecentPublicationDate.Before(b.RecentPublicationDate.Time)
	},
	api.SortPublicationCertified: func(a, b api.ReportingPeriod) bool {
		return !a.RecentPublicationDateCertified && b.RecentPublicationDateCertified
	},
	api.SortMissingTASCount: func(a, b api.ReportingPeriod) bool {
		return missingTAS(a) < missingTAS(b)
	},
	api.SortTASNotInGTASTotal: func(a, b api.ReportingPeriod) bool {
		return notInGTAS(a) < notInGTAS(b)
	},
	api.SortObligationDiff: func(a, b api.ReportingPeriod) bool {
		return lessPtr(a.ObligationDifference, b.ObligationDifference)
	},
	api.SortUnlinkedContracts: func(a, b api.ReportingPeriod) bool {
		return lessPtr(a.UnlinkedContractAwardCount, b.UnlinkedContractAwardCount)
	},
	api.SortUnlinkedAssistance: func(a, b api.ReportingPeriod) bool {
		return lessPtr(a.UnlinkedAssistanceAwardCount, b.UnlinkedAssistanceAwardCount)
	},
})

func (s *Server) handleReportingOverview(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "toptier_code")
	periods, ok := s.data.Reporting[code]
	if !ok {
		respondDetail(w, http.StatusNotFound, fmt.Sprintf("Agency with a toptier code of '%s' does not exist", code))
		return
	}

	params, err := parsePaging(r, api.SortBudgetAuthority, query.MaxLimit)
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := reportingSorter.Validate(params.Sort); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sorted := reportingSorter.Sort(periods, params.Sort, params.Order)
	respondJSON(w, http.StatusOK, api.ReportingOverviewPage{
		PageMetadata: query.NewMeta(params.Page, params.Limit, len(sorted)),
		Results:      pageOf(sorted, params.Page, params.Limit),
		Messages:     []string{},
	})
}

func (s *Server) handleSubmissionHistory(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "toptier_code")
	if _, ok := s.data.Agencies[code]; !ok {
		respondDetail(w, http.StatusNotFound, fmt.Sprintf("Agency with a toptier code of '%s' does not exist", code))
		return
	}

	fy, fyErr := strconv.Atoi(chi.URLParam(r, "fiscal_year"))
	fp, fpErr := strconv.Atoi(chi.URLParam(r, "fiscal_period"))
	if fyErr != nil || fpErr != nil || fp < 2 || fp > 12 {
		respondDetail(w, http.StatusUnprocessableEntity, "fiscal_year and fiscal_period must be integers, fiscal_period between 2 and 12")
		return
	}

	params, err := parsePaging(r, api.SortPublicationDate, submissionHistoryMaxLimit)
	if err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := api.PublicationDateSorter.Validate(params.Sort); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rows := api.PublicationDateSorter.Sort(s.data.History[HistoryKey(code, fy, fp)], params.Sort, params.Order)
	respondJSON(w, http.StatusOK, api.SubmissionHistoryPage{
		PageMetadata: query.NewMeta(params.Page, params.Limit, len(rows)),
		Results:      pageOf(rows, params.Page, params.Limit),
		Messages:     []string{},
	})
}

func (s *Server) handleSubmissionPeriods(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, api.SubmissionPeriodsResponse{AvailablePeriods: s.data.Periods})
}

// parsePaging reads page, limit, sort and order with API defaults.
func parsePaging(r *http.Request, defaultSort string, maxLimit int) (query.Params, error) {
	q := r.URL.Query()
	p := query.NewParams()
	p.Sort = defaultSort

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return p, fmt.Errorf("%w: got %q", query.ErrInvalidPage, v)
		}
		p.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < query.MinLimit || limit > maxLimit {
			return p, fmt.Errorf("limit must be between %d and %d: got %q", query.MinLimit, maxLimit, v)
		}
		p.Limit = limit
	}
	if v := q.Get("sort"); v != "" {
		p.Sort = v
	}
	if v := strings.ToLower(q.Get("order")); v != "" {
		p.Order = v
	}
	return p, p.Validate()
}

// pageOf is query.Page without the last-page capping: a page past the end
// is empty, as the API returns it.
func pageOf[T any](items []T, page, limit int) []T {
	offset := (page - 1) * limit
	if offset >= len(items) {
		return []T{}
	}
	return items[offset:min(offset+limit, len(items))]
}

func lessPtr[T int | float64](a, b *T) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	default:
		return *a < *b
	}
}

func missingTAS(p api.ReportingPeriod) int {
	if p.TASAccountDiscrepanciesTotals == nil {
		return 0
	}
	return p.TASAccountDiscrepanciesTotals.MissingTASAccountsCount
}

func notInGTAS(p api.ReportingPeriod) float64 {
	if p.TASAccountDiscrepanciesTotals == nil {
		return 0
	}
	return p.TASAccountDiscrepanciesTotals.TASObligationNotInGTASTotal
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
