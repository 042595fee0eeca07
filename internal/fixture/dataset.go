package fixture

import (
	"fmt"
	"time"

	"github.com/spendview/spendview/internal/api"
)

// Dataset is the in-memory data the fixture server answers from.
type Dataset struct {
	Agencies  map[string]api.AgencyOverview
	Reporting map[string][]api.ReportingPeriod
	// History is keyed by HistoryKey(code, fiscalYear, fiscalPeriod).
	History map[string][]api.PublicationDate
	Periods []api.SubmissionPeriod
}

// HistoryKey builds the Dataset.History key.
func HistoryKey(code string, fiscalYear, fiscalPeriod int) string {
	return fmt.Sprintf("%s/%d/%d", code, fiscalYear, fiscalPeriod)
}

type seedAgency struct {
	code, name, abbreviation, website string
	id, subtiers                      int
	budgetShare                       float64
}

var seedAgencies = []seedAgency{
	{"012", "Department of Agriculture", "USDA", "https://www.usda.gov/", 14, 17, 2.31},
	{"020", "Department of the Treasury", "TREAS", "https://home.treasury.gov/", 48, 12, 21.05},
	{"075", "Department of Health and Human Services", "HHS", "https://www.hhs.gov/", 68, 11, 24.18},
	{"097", "Department of Defense", "DOD", "https://www.defense.gov/", 126, 27, 9.76},
}

// fixturePeriods are the (fiscal year, fiscal period) pairs every agency reports.
var fixturePeriods = [][2]int{
	{2020, 6}, {2020, 7}, {2020, 8}, {2020, 9}, {2020, 10}, {2020, 11}, {2020, 12},
	{2021, 2}, {2021, 3}, {2021, 4}, {2021, 5}, {2021, 6},
}

// DefaultDataset returns a deterministic dataset of four agencies with twelve
// reporting periods each. Every third period has no percent of budget and
// every fifth has no publication date, so missing-value paths get exercised.
func DefaultDataset() *Dataset {
	d := &Dataset{
		Agencies:  make(map[string]api.AgencyOverview),
		Reporting: make(map[string][]api.ReportingPeriod),
		History:   make(map[string][]api.PublicationDate),
	}

	for ai, a := range seedAgencies {
		d.Agencies[a.code] = api.AgencyOverview{
			FiscalYear:         2021,
			ToptierCode:        a.code,
			Name:               a.name,
			Abbreviation:       a.abbreviation,
			AgencyID:           a.id,
			Website:            a.website,
			Mission:            "Mission statement of the " + a.name + ".",
			SubtierAgencyCount: a.subtiers,
			DefCodes:           []string{"L", "M", "N"},
			Messages:           []string{},
		}

		periods := make([]api.ReportingPeriod, 0, len(fixturePeriods))
		for pi, fp := range fixturePeriods {
			n := ai*len(fixturePeriods) + pi
			periods = append(periods, reportingPeriod(a, n, fp[0], fp[1]))
			d.History[HistoryKey(a.code, fp[0], fp[1])] = publicationDates(n, fp[0], fp[1])
		}
		d.Reporting[a.code] = periods
	}

	d.Periods = submissionPeriods()
	return d
}

func reportingPeriod(a seedAgency, n, fy, fp int) api.ReportingPeriod {
	budget := float64(1_000_000_000*(n%7+1)) + float64(n)*12_345.67
	total := budget / (a.budgetShare / 100)
	diff := float64((n%5)-2) * 4_321.5
	contracts := (n * 7) % 50
	assistance := (n * 3) % 20

	p := api.ReportingPeriod{
		FiscalYear:                        fy,
		FiscalPeriod:                      fp,
		CurrentTotalBudgetAuthorityAmount: &budget,
		TotalBudgetaryResources:           &total,
		RecentPublicationDateCertified:    fp%3 == 0,
		TASAccountDiscrepanciesTotals: &api.TASDiscrepancies{
			GTASObligationTotal:         budget * 0.9,
			TASAccountsTotal:            budget * 0.85,
			TASObligationNotInGTASTotal: float64(n) * 100,
			MissingTASAccountsCount:     n % 9,
		},
		ObligationDifference:         &diff,
		UnlinkedContractAwardCount:   &contracts,
		UnlinkedAssistanceAwardCount: &assistance,
		AssuranceStatementURL: fmt.Sprintf(
			"https://files.usaspending.gov/agency_submissions/Raw%%20DATA%%20Act%%20Files/%d/P%02d/%s%%20-%%20%s/Assurance_Statement.txt",
			fy, fp, a.abbreviation, a.name),
	}

	if n%3 != 0 {
		share := a.budgetShare + float64(n%4)/10
		p.PercentOfTotalBudgetaryResources = &share
	}
	if n%5 != 0 {
		p.RecentPublicationDate = api.NewDate(periodEnd(fy, fp).AddDate(0, 0, 45+n%10))
	}
	return p
}

// publicationDates returns a history of (n%4)+2 submissions, some uncertified.
func publicationDates(n, fy, fp int) []api.PublicationDate {
	count := n%4 + 2
	base := periodEnd(fy, fp).AddDate(0, 0, 20)
	out := make([]api.PublicationDate, 0, count)
	for i := range count {
		pub := base.AddDate(0, 0, i*3+n%3)
		row := api.PublicationDate{PublicationDate: api.NewDate(pub)}
		if i%2 == 0 {
			row.CertificationDate = api.NewDate(pub.AddDate(0, 0, 10))
		}
		out = append(out, row)
	}
	return out
}

// submissionPeriods returns a monthly calendar for the fixture years plus the
// quarterly entries that share a month with them.
func submissionPeriods() []api.SubmissionPeriod {
	var out []api.SubmissionPeriod
	for _, fy := range []int{2020, 2021} {
		for fp := 2; fp <= 12; fp++ {
			end := periodEnd(fy, fp)
			monthly := api.SubmissionPeriod{
				PeriodStartDate:         api.NewDate(end.AddDate(0, -1, 1)),
				PeriodEndDate:           api.NewDate(end),
				SubmissionStartDate:     api.NewDate(end.AddDate(0, 0, 18)),
				SubmissionDueDate:       api.NewDate(end.AddDate(0, 0, 32)),
				CertificationDueDate:    api.NewDate(end.AddDate(0, 0, 46)),
				SubmissionRevealDate:    api.NewDate(end.AddDate(0, 0, 61)),
				SubmissionFiscalYear:    fy,
				SubmissionFiscalQuarter: (fp + 2) / 3,
				SubmissionFiscalMonth:   fp,
			}
			if fp%3 == 0 {
				quarterly := monthly
				quarterly.IsQuarter = true
				quarterly.CertificationDueDate = api.NewDate(end.AddDate(0, 0, 60))
				out = append(out, quarterly)
			}
			out = append(out, monthly)
		}
	}
	return out
}

// periodEnd returns the last day of a fiscal period. Fiscal years start in
// October of the previous calendar year.
func periodEnd(fy, fp int) time.Time {
	month := time.Month((fp+8)%12 + 1)
	year := fy
	if month >= time.October {
		year--
	}
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}
