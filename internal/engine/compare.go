package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/engine/batch"
	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/logging"
	"github.com/spendview/spendview/internal/query"
)

// AgencySummary is one row of an agency comparison.
type AgencySummary struct {
	Code         string                  `json:"code"                   yaml:"code"`
	Name         string                  `json:"name,omitempty"         yaml:"name,omitempty"`
	Abbreviation string                  `json:"abbreviation,omitempty" yaml:"abbreviation,omitempty"`
	Latest       *api.ReportingPeriodRow `json:"latest,omitempty"       yaml:"latest,omitempty"`
	Error        string                  `json:"error,omitempty"        yaml:"error,omitempty"`
}

// OK reports whether both requests for the agency succeeded.
func (s AgencySummary) OK() bool { return s.Error == "" }

// CompareOptions configures Compare.
type CompareOptions struct {
	ViewOptions

	// Concurrency bounds in-flight agencies. Zero uses batch.DefaultConcurrency.
	Concurrency int

	// OnProgress is called after each agency completes.
	OnProgress batch.ProgressCallback
}

// Compare loads the overview and the most recent reporting period of every
// agency in codes. Results keep the order of codes. An agency that fails is
// reported in its summary; only cancellation of ctx fails the comparison.
func Compare(ctx context.Context, opts CompareOptions, codes []string) ([]AgencySummary, error) {
	if len(codes) == 0 {
		return nil, ErrNoAgencies
	}
	if opts.Transport == nil {
		return nil, fetch.ErrNoTransport
	}
	if opts.Context == nil {
		opts.Context = ctx
	}

	logger := logging.ComponentLogger(opts.Logger, "compare")
	results := make([]AgencySummary, len(codes))
	var mu sync.Mutex

	index := make([]int, len(codes))
	for i := range index {
		index[i] = i
	}

	proc, err := batch.NewProcessor[int](1)
	if err != nil {
		return nil, err
	}
	proc.WithProgressCallback(opts.OnProgress)

	err = proc.ProcessConcurrent(ctx, index, func(ctx context.Context, items []int, _ int) error {
		i := items[0]
		summary := compareOne(ctx, opts.ViewOptions, codes[i])
		mu.Lock()
		results[i] = summary
		mu.Unlock()
		if !summary.OK() {
			return fmt.Errorf("agency %s: %s", summary.Code, summary.Error)
		}
		return nil
	}, opts.Concurrency)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return results, ctxErr
	}
	if err != nil {
		logger.Warn().Err(err).Msg("comparison finished with failed agencies")
	}
	return results, nil
}

func compareOne(ctx context.Context, opts ViewOptions, code string) AgencySummary {
	code = strings.TrimSpace(code)
	summary := AgencySummary{Code: code}
	if code == "" {
		summary.Error = ErrEmptyAgency.Error()
		return summary
	}

	overview, err := NewOverview(opts)
	if err != nil {
		summary.Error = err.Error()
		return summary
	}
	defer overview.Close()

	reporting, err := newController[api.ReportingOverviewPage](opts, api.EndpointReportingOverview, newNotifier(), nil)
	if err != nil {
		summary.Error = err.Error()
		return summary
	}
	defer reporting.Dispose()

	// Newest period first, one row.
	latest := query.NewParams().
		WithSort(api.SortFiscalYear, query.SortOrderDesc).
		WithLimit(1).
		WithPath(api.PathToptierCode, code)

	if err = overview.SetAgency(code); err != nil {
		summary.Error = err.Error()
		return summary
	}
	reporting.Submit(latest)

	ov, err := overview.Await(ctx)
	if err != nil {
		summary.Error = awaitMessage(err)
		return summary
	}
	rep, err := reporting.Await(ctx)
	if err != nil {
		summary.Error = awaitMessage(err)
		return summary
	}

	if ov.IsLoaded() {
		summary.Name = ov.Data.Name
		summary.Abbreviation = ov.Data.Abbreviation
	}
	if rep.IsLoaded() && len(rep.Data.Results) > 0 {
		row := api.NewReportingPeriodRow(rep.Data.Results[0])
		summary.Latest = &row
	}

	switch {
	case ov.HasError():
		summary.Error = ov.Message
	case rep.HasError():
		summary.Error = rep.Message
	}
	return summary
}

func awaitMessage(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return err.Error()
}
