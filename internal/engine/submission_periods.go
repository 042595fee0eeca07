package engine

import (
	"context"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/query"
)

// SubmissionPeriods loads the submission calendar.
type SubmissionPeriods struct {
	ctrl *fetch.Controller[api.SubmissionPeriodsResponse]
}

// NewSubmissionPeriods creates an idle calendar view.
func NewSubmissionPeriods(opts ViewOptions) (*SubmissionPeriods, error) {
	ctrl, err := newController[api.SubmissionPeriodsResponse](opts, api.EndpointSubmissionPeriods, newNotifier(), nil)
	if err != nil {
		return nil, err
	}
	return &SubmissionPeriods{ctrl: ctrl}, nil
}

// Load requests the calendar. Repeated calls are deduplicated.
func (v *SubmissionPeriods) Load() bool { return v.ctrl.Submit(query.Params{}) }

// Refresh re-requests the calendar.
func (v *SubmissionPeriods) Refresh() bool { return v.ctrl.Refresh() }

// State returns the calendar state.
func (v *SubmissionPeriods) State() fetch.ViewState[api.SubmissionPeriodsResponse] {
	return v.ctrl.State()
}

// Await blocks until the calendar settles.
func (v *SubmissionPeriods) Await(ctx context.Context) (fetch.ViewState[api.SubmissionPeriodsResponse], error) {
	return v.ctrl.Await(ctx)
}

// Periods returns the loaded entries for fiscalYear, or all entries when
// fiscalYear is 0.
func (v *SubmissionPeriods) Periods(fiscalYear int) []api.SubmissionPeriod {
	s := v.ctrl.State()
	if !s.IsLoaded() {
		return nil
	}
	return FilterPeriods(s.Data.AvailablePeriods, fiscalYear)
}

// Close disposes the controller.
func (v *SubmissionPeriods) Close() { v.ctrl.Dispose() }

// FilterPeriods keeps entries of fiscalYear. Zero keeps everything.
func FilterPeriods(periods []api.SubmissionPeriod, fiscalYear int) []api.SubmissionPeriod {
	if fiscalYear == 0 {
		return periods
	}
	out := make([]api.SubmissionPeriod, 0, len(periods))
	for _, p := range periods {
		if p.SubmissionFiscalYear == fiscalYear {
			out = append(out, p)
		}
	}
	return out
}
