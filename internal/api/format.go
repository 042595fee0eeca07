package api

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Missing is rendered wherever a value is absent.
const Missing = "--"

// DisplayDateLayout is MM/DD/YYYY.
const DisplayDateLayout = "01/02/2006"

// quarterEndPeriods maps quarter-closing fiscal periods to their quarter.
var quarterEndPeriods = map[int]int{3: 1, 6: 2, 9: 3, 12: 4}

// printer groups digits the way the site does (1,234,567.89).
var printer = message.NewPrinter(language.AmericanEnglish) //nolint:gochecknoglobals // immutable formatter

// PeriodTitle names a fiscal period: "Q1 / P03" for quarter ends, "P01 - P02"
// for the combined opening period and "P07" otherwise.
func PeriodTitle(period int) string {
	if q, ok := quarterEndPeriods[period]; ok {
		return fmt.Sprintf("Q%d / P%02d", q, period)
	}
	if period <= 2 {
		return "P01 - P02"
	}
	return fmt.Sprintf("P%02d", period)
}

// PeriodLabel returns "FY 2021: Q1 / P03".
func PeriodLabel(fiscalYear, fiscalPeriod int) string {
	return fmt.Sprintf("FY %d: %s", fiscalYear, PeriodTitle(fiscalPeriod))
}

// FormatDate renders d as MM/DD/YYYY, or Missing for zero and epoch dates.
func FormatDate(d Date) string {
	if d.IsZero() || d.Unix() == 0 {
		return Missing
	}
	return d.UTC().Format(DisplayDateLayout)
}

// FormatNumber groups an integer count.
func FormatNumber(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(v *float64) string {
	if v == nil {
		return Missing
	}
	return printer.Sprintf("%.2f%%", *v)
}

// FormatMoney renders v as dollars with cents: "-$1,234.50".
func FormatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	return sign + printer.Sprintf("$%.2f", math.Abs(v))
}

// ReportingPeriodRow is a ReportingPeriod formatted for display.
type ReportingPeriodRow struct {
	FiscalYear           int    `json:"fiscalYear"           yaml:"fiscal_year"`
	FiscalPeriod         int    `json:"fiscalPeriod"         yaml:"fiscal_period"`
	ReportingPeriod      string `json:"reportingPeriod"      yaml:"reporting_period"`
	PercentOfBudget      string `json:"percentOfBudget"      yaml:"percent_of_budget"`
	MostRecentUpdate     string `json:"mostRecentUpdate"     yaml:"most_recent_update"`
	MissingTASCount      string `json:"missingTASCount"      yaml:"missing_tas_count"`
	ObligationDifference string `json:"obligationDifference" yaml:"obligation_difference"`
	UnlinkedContracts    string `json:"unlinkedContracts"    yaml:"unlinked_contracts"`
	UnlinkedAssistance   string `json:"unlinkedAssistance"   yaml:"unlinked_assistance"`
	AssuranceStatement   string `json:"assuranceStatement"   yaml:"assurance_statement"`
}

// ReportingPeriodColumns are the display headers in row order.
var ReportingPeriodColumns = []string{
	"Reporting Period",
	"Percent of Total Federal Budget",
	"Most Recent Update",
	"Number of TASs Missing from Account Balance Data",
	"Reporting Difference in Obligations",
	"Number of Unlinked Contract Awards",
	"Number of Unlinked Assistance Awards",
	"Assurance Statements",
}

// NewReportingPeriodRow formats p. Absent counts and amounts render as 0,
// absent percentages and dates as Missing.
func NewReportingPeriodRow(p ReportingPeriod) ReportingPeriodRow {
	missingTAS := 0
	if p.TASAccountDiscrepanciesTotals != nil {
		missingTAS = p.TASAccountDiscrepanciesTotals.MissingTASAccountsCount
	}

	assurance := p.AssuranceStatementURL
	if assurance == "" {
		assurance = Missing
	}

	return ReportingPeriodRow{
		FiscalYear:           p.FiscalYear,
		FiscalPeriod:         p.FiscalPeriod,
		ReportingPeriod:      PeriodLabel(p.FiscalYear, p.FiscalPeriod),
		PercentOfBudget:      FormatPercent(p.PercentOfTotalBudgetaryResources),
		MostRecentUpdate:     FormatDate(p.RecentPublicationDate),
		MissingTASCount:      FormatNumber(missingTAS),
		ObligationDifference: FormatMoney(deref(p.ObligationDifference)),
		UnlinkedContracts:    FormatNumber(deref(p.UnlinkedContractAwardCount)),
		UnlinkedAssistance:   FormatNumber(deref(p.UnlinkedAssistanceAwardCount)),
		AssuranceStatement:   assurance,
	}
}

// Cells returns the row in ReportingPeriodColumns order.
func (r ReportingPeriodRow) Cells() []string {
	return []string{
		r.ReportingPeriod,
		r.PercentOfBudget,
		r.MostRecentUpdate,
		r.MissingTASCount,
		r.ObligationDifference,
		r.UnlinkedContracts,
		r.UnlinkedAssistance,
		r.AssuranceStatement,
	}
}

// ReportingPeriodRows formats a page of results.
func ReportingPeriodRows(periods []ReportingPeriod) []ReportingPeriodRow {
	rows := make([]ReportingPeriodRow, len(periods))
	for i, p := range periods {
		rows[i] = NewReportingPeriodRow(p)
	}
	return rows
}

// PublicationDateRow is a formatted submission-history row.
type PublicationDateRow struct {
	PublicationDate   string `json:"publicationDate"   yaml:"publication_date"`
	CertificationDate string `json:"certificationDate" yaml:"certification_date"`
}

// NormalizePublicationDates replaces missing dates with the Unix epoch so
// they sort before every real date.
func NormalizePublicationDates(dates []PublicationDate) []PublicationDate {
	out := make([]PublicationDate, len(dates))
	epoch := NewDate(time.Unix(0, 0).UTC())
	for i, d := range dates {
		out[i] = d
		if d.PublicationDate.IsZero() {
			out[i].PublicationDate = epoch
		}
		if d.CertificationDate.IsZero() {
			out[i].CertificationDate = epoch
		}
	}
	return out
}

// FormatPublicationDates renders rows as MM/DD/YYYY with Missing for
// absent dates.
func FormatPublicationDates(dates []PublicationDate) []PublicationDateRow {
	rows := make([]PublicationDateRow, len(dates))
	for i, d := range dates {
		rows[i] = PublicationDateRow{
			PublicationDate:   FormatDate(d.PublicationDate),
			CertificationDate: FormatDate(d.CertificationDate),
		}
	}
	return rows
}

// Deadlines are the due dates of one fiscal period.
type Deadlines struct {
	SubmissionDueDate    Date `json:"submissionDueDate"    yaml:"submission_due_date"`
	CertificationDueDate Date `json:"certificationDueDate" yaml:"certification_due_date"`
}

// SubmissionDeadlines finds the due dates for fiscalYear/fiscalPeriod. A
// monthly calendar entry wins over a quarterly one for the same month.
func SubmissionDeadlines(fiscalYear, fiscalPeriod int, periods []SubmissionPeriod) (Deadlines, bool) {
	var (
		found Deadlines
		ok    bool
	)
	for _, p := range periods {
		if p.SubmissionFiscalYear != fiscalYear || p.SubmissionFiscalMonth != fiscalPeriod {
			continue
		}
		found = Deadlines{
			SubmissionDueDate:    p.SubmissionDueDate,
			CertificationDueDate: p.CertificationDueDate,
		}
		ok = true
		if !p.IsQuarter {
			break
		}
	}
	return found, ok
}

func deref[T int | float64](v *T) T {
	if v == nil {
		return 0
	}
	return *v
}
