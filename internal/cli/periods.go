package cli

import (
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/engine"
)

func newPeriodsCmd(rt *runtime) *cobra.Command {
	var fiscalYear int

	cmd := &cobra.Command{
		Use:   "periods",
		Short: "List the submission calendar",
		Long:  "Lists submission windows with their due and reveal dates. Quarterly entries are marked with Q.",
		Args:  cobra.NoArgs,
		Example: `  spendview periods
  spendview periods --fy 2021 -o yaml`,
		RunE: rt.runE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			opts, err := rt.viewOptions(ctx)
			if err != nil {
				return err
			}
			v, err := engine.NewSubmissionPeriods(opts)
			if err != nil {
				return err
			}
			defer v.Close()

			v.Load()
			state, err := v.Await(ctx)
			if err != nil {
				return err
			}
			if state.HasError() {
				return failure(state.Message)
			}

			periods := v.Periods(fiscalYear)
			if periods == nil {
				periods = []api.SubmissionPeriod{}
			}
			return render(cmd.OutOrStdout(), rt.format(), periods, func(tw *tabwriter.Writer) {
				row(tw, "Period", "Kind", "Window Opens", "Submission Due", "Certification Due", "Revealed")
				for _, p := range periods {
					kind := "M"
					if p.IsQuarter {
						kind = "Q" + strconv.Itoa(p.SubmissionFiscalQuarter)
					}
					row(tw,
						api.PeriodLabel(p.SubmissionFiscalYear, p.SubmissionFiscalMonth),
						kind,
						api.FormatDate(p.SubmissionStartDate),
						api.FormatDate(p.SubmissionDueDate),
						api.FormatDate(p.CertificationDueDate),
						api.FormatDate(p.SubmissionRevealDate),
					)
				}
			})
		}),
	}

	cmd.Flags().IntVar(&fiscalYear, "fy", 0, "only show this fiscal year (0 = all)")
	return cmd
}
