package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/engine"
	"github.com/spendview/spendview/internal/engine/batch"
	"github.com/spendview/spendview/internal/query"
	"github.com/spendview/spendview/internal/tui"
)

// ErrNotTerminal is returned by interactive commands without a TTY.
var ErrNotTerminal = errors.New("agency browse needs an interactive terminal; use 'agency periods' instead")

func newAgencyCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{Use: "agency", Short: "Agency profile and reporting commands"}
	cmd.AddCommand(
		newAgencyOverviewCmd(rt),
		newAgencyPeriodsCmd(rt),
		newAgencyPublicationsCmd(rt),
		newAgencyBrowseCmd(rt),
		newAgencyCompareCmd(rt),
	)
	return cmd
}

func newAgencyOverviewCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "overview <toptier-code>",
		Short:   "Show an agency profile",
		Args:    cobra.ExactArgs(1),
		Example: "  spendview agency overview 012",
		RunE: rt.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := rt.viewOptions(ctx)
			if err != nil {
				return err
			}
			v, err := engine.NewOverview(opts)
			if err != nil {
				return err
			}
			defer v.Close()

			if err = v.SetAgency(args[0]); err != nil {
				return err
			}
			state, err := v.Await(ctx)
			if err != nil {
				return err
			}
			if state.HasError() {
				return failure(state.Message)
			}

			a := state.Data
			return render(cmd.OutOrStdout(), rt.format(), a, func(tw *tabwriter.Writer) {
				row(tw, "Name:", a.Name)
				row(tw, "Abbreviation:", a.Abbreviation)
				row(tw, "Toptier code:", a.ToptierCode)
				row(tw, "Fiscal year:", strconv.Itoa(a.FiscalYear))
				row(tw, "Sub-agencies:", api.FormatNumber(a.SubtierAgencyCount))
				row(tw, "Website:", orMissing(a.Website))
				if a.Mission != "" {
					row(tw, "Mission:", a.Mission)
				}
			})
		}),
	}
}

// periodsOutput is the structured form of `agency periods`.
type periodsOutput struct {
	Query engine.AgencyQuery       `json:"query"`
	Meta  query.Meta               `json:"meta"`
	Rows  []api.ReportingPeriodRow `json:"rows"`
}

func newAgencyPeriodsCmd(rt *runtime) *cobra.Command {
	var (
		page     int
		limit    int
		sortExpr string
	)

	cmd := &cobra.Command{
		Use:   "periods <toptier-code>",
		Short: "Page through an agency's reporting periods",
		Args:  cobra.ExactArgs(1),
		Example: `  spendview agency periods 012
  spendview agency periods 012 --sort fiscal_year:asc --limit 25
  spendview agency periods 020 --page 2 -o json`,
		RunE: rt.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			q := engine.DefaultAgencyQuery()
			q.Agency = args[0]
			q.Page = page
			q.Limit = rt.pageSize(limit)
			if sortExpr != "" {
				field, order, err := query.ParseSort(sortExpr)
				if err != nil {
					return err
				}
				q.Sort, q.Order = field, order
			}

			opts, err := rt.viewOptions(ctx)
			if err != nil {
				return err
			}
			v, err := engine.NewAgencyDetails(opts)
			if err != nil {
				return err
			}
			defer v.Close()

			if err = v.SetQuery(q); err != nil {
				return err
			}
			state, err := v.Await(ctx)
			if err != nil {
				return err
			}
			if state.HasError() {
				return failure(state.Message)
			}

			meta, _ := v.Meta()
			out := periodsOutput{Query: v.Query(), Meta: meta, Rows: v.Rows()}
			return render(cmd.OutOrStdout(), rt.format(), out, func(tw *tabwriter.Writer) {
				row(tw, api.ReportingPeriodColumns...)
				for _, r := range out.Rows {
					row(tw, r.Cells()...)
				}
				_, _ = fmt.Fprintf(tw, "\nPage %d of %d (%d periods, sorted by %s %s)\n",
					out.Query.Page, max(meta.TotalPages(), 1), meta.Total, out.Query.Sort, out.Query.Order)
			})
		}),
	}

	cmd.Flags().IntVar(&page, "page", query.DefaultPage, "page number (1-based)")
	cmd.Flags().IntVar(&limit, "limit", 0, "rows per page (0 = output.page_size)")
	cmd.Flags().StringVar(&sortExpr, "sort", "",
		"sort as field[:asc|desc] (fields: "+strings.Join(api.ReportingSortFields, ", ")+")")
	return cmd
}

func newAgencyPublicationsCmd(rt *runtime) *cobra.Command {
	var (
		fiscalYear   int
		fiscalPeriod int
		page         int
		limit        int
		sortExpr     string
	)

	cmd := &cobra.Command{
		Use:   "publications <toptier-code>",
		Short: "Show the publication and certification history of one period",
		Args:  cobra.ExactArgs(1),
		Example: `  spendview agency publications 012 --fy 2020 --period 9
  spendview agency publications 012 --fy 2020 --period 9 --sort certification_date:asc`,
		RunE: rt.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := rt.viewOptions(ctx)
			if err != nil {
				return err
			}
			v, err := engine.NewPublicationDates(opts)
			if err != nil {
				return err
			}
			defer v.Close()

			if err = v.SetPeriod(args[0], fiscalYear, fiscalPeriod); err != nil {
				return err
			}
			if sortExpr != "" {
				field, order, parseErr := query.ParseSort(sortExpr)
				if parseErr != nil {
					return parseErr
				}
				if err = v.SetSort(field, order); err != nil {
					return err
				}
			}
			if err = v.SetLimit(rt.pageSize(limit)); err != nil {
				return err
			}
			if err = v.SetPage(page); err != nil {
				return err
			}

			view, err := v.Await(ctx)
			if err != nil {
				return err
			}
			if view.Message != "" {
				return failure(view.Message)
			}

			return render(cmd.OutOrStdout(), rt.format(), view, func(tw *tabwriter.Writer) {
				_, _ = fmt.Fprintf(tw, "%s\n", api.PeriodLabel(fiscalYear, fiscalPeriod))
				row(tw, "Submission due:", view.SubmissionDue)
				row(tw, "Certification due:", view.CertificationDue)
				_, _ = fmt.Fprintln(tw)
				row(tw, "Publication Date", "Certification Date")
				for _, r := range view.Rows {
					row(tw, r.PublicationDate, r.CertificationDate)
				}
				_, _ = fmt.Fprintf(tw, "\nPage %d of %d (%d publications)\n",
					view.Meta.Page, max(view.Meta.TotalPages(), 1), view.Meta.Total)
			})
		}),
	}

	cmd.Flags().IntVar(&fiscalYear, "fy", 0, "fiscal year")
	cmd.Flags().IntVar(&fiscalPeriod, "period", 0, "fiscal period (2-12)")
	cmd.Flags().IntVar(&page, "page", query.DefaultPage, "page number (1-based)")
	cmd.Flags().IntVar(&limit, "limit", 0, "rows per page (0 = output.page_size)")
	cmd.Flags().StringVar(&sortExpr, "sort", "", "sort as publication_date|certification_date[:asc|desc]")
	_ = cmd.MarkFlagRequired("fy")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func newAgencyBrowseCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <toptier-code>",
		Short: "Browse an agency interactively",
		Long: `Opens a terminal UI over the agency's reporting periods.

Keys: n/p page, s sort column, o order, +/- rows, enter publication history,
a switch agency, r refresh, esc back, q quit.`,
		Args: cobra.ExactArgs(1),
		RunE: rt.runE(func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdin) || !writerIsTerminal(cmd.OutOrStdout()) {
				return ErrNotTerminal
			}
			ctx := cmd.Context()
			opts, err := rt.viewOptions(ctx)
			if err != nil {
				return err
			}
			return tui.Run(ctx, opts, args[0])
		}),
	}
}

func newAgencyCompareCmd(rt *runtime) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:     "compare <toptier-code>...",
		Short:   "Compare the latest reporting period of several agencies",
		Args:    cobra.MinimumNArgs(1),
		Example: "  spendview agency compare 012 020 075 097 --concurrency 2",
		RunE: rt.runE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := rt.viewOptions(ctx)
			if err != nil {
				return err
			}

			copts := engine.CompareOptions{ViewOptions: opts, Concurrency: concurrency}
			if errOut := cmd.ErrOrStderr(); writerIsTerminal(errOut) {
				copts.OnProgress = func(s batch.ProgressSnapshot) {
					_, _ = fmt.Fprintf(errOut, "\rCompared %d/%d", s.Done(), s.TotalItems)
					if s.IsComplete() {
						_, _ = fmt.Fprintln(errOut)
					}
				}
			}

			summaries, err := engine.Compare(ctx, copts, args)
			if err != nil {
				return err
			}

			err = render(cmd.OutOrStdout(), rt.format(), summaries, func(tw *tabwriter.Writer) {
				row(tw, "Code", "Agency", "Latest Period", "% Budget", "Updated", "Status")
				for _, s := range summaries {
					name, period, pct, updated := api.Missing, api.Missing, api.Missing, api.Missing
					if s.Name != "" {
						name = fmt.Sprintf("%s (%s)", s.Name, s.Abbreviation)
					}
					if s.Latest != nil {
						period, pct, updated = s.Latest.ReportingPeriod, s.Latest.PercentOfBudget, s.Latest.MostRecentUpdate
					}
					status := "ok"
					if !s.OK() {
						status = s.Error
					}
					row(tw, s.Code, name, period, pct, updated, status)
				}
			})
			if err != nil {
				return err
			}

			failed := 0
			for _, s := range summaries {
				if !s.OK() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d agencies failed", failed, len(summaries))
			}
			return nil
		}),
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", batch.DefaultConcurrency, "agencies loaded in parallel")
	return cmd
}

// pageSize returns flag when set, else the configured page size.
func (r *runtime) pageSize(flag int) int {
	if flag > 0 {
		return flag
	}
	return r.cfg.Output.PageSize
}

func orMissing(s string) string {
	if s == "" {
		return api.Missing
	}
	return s
}
