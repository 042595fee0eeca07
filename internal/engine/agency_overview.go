package engine

import (
	"context"
	"strings"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/query"
)

// Overview loads the profile of one agency.
type Overview struct {
	ctrl   *fetch.Controller[api.AgencyOverview]
	notify *notifier
}

// NewOverview creates an idle overview.
func NewOverview(opts ViewOptions) (*Overview, error) {
	v := &Overview{notify: newNotifier()}
	ctrl, err := newController[api.AgencyOverview](opts, api.EndpointAgencyOverview, v.notify, nil)
	if err != nil {
		return nil, err
	}
	v.ctrl = ctrl
	return v, nil
}

// SetAgency loads the agency with toptier code. Setting the code already
// shown does nothing.
func (v *Overview) SetAgency(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrEmptyAgency
	}
	v.ctrl.Submit(query.Params{}.WithPath(api.PathToptierCode, code))
	return nil
}

// Refresh reloads the current agency.
func (v *Overview) Refresh() bool { return v.ctrl.Refresh() }

// State returns the overview state.
func (v *Overview) State() fetch.ViewState[api.AgencyOverview] { return v.ctrl.State() }

// Snapshot returns the state and a channel closed on the next change.
func (v *Overview) Snapshot() (fetch.ViewState[api.AgencyOverview], <-chan struct{}) {
	ch := v.notify.wait()
	return v.ctrl.State(), ch
}

// Await blocks until the current request settles.
func (v *Overview) Await(ctx context.Context) (fetch.ViewState[api.AgencyOverview], error) {
	return v.ctrl.Await(ctx)
}

// Close disposes the controller.
func (v *Overview) Close() {
	v.ctrl.Dispose()
	v.notify.close()
}
