package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spendview/spendview/internal/query"
)

// dateOnly is the layout the API uses for calendar dates.
const dateOnly = "2006-01-02"

// Date is an API timestamp. It accepts RFC3339, plain dates and null; a
// missing value is the zero Date.
type Date struct {
	time.Time
}

// NewDate wraps t.
func NewDate(t time.Time) Date { return Date{Time: t} }

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", dateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("date: unrecognized format %q", s)
}

// MarshalJSON writes RFC3339 or null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}

// AgencyOverview is the EndpointAgencyOverview response.
type AgencyOverview struct {
	FiscalYear                    int      `json:"fiscal_year"`
	ToptierCode                   string   `json:"toptier_code"`
	Name                          string   `json:"name"`
	Abbreviation                  string   `json:"abbreviation"`
	AgencyID                      int      `json:"agency_id"`
	IconFilename                  string   `json:"icon_filename,omitempty"`
	Mission                       string   `json:"mission,omitempty"`
	Website                       string   `json:"website,omitempty"`
	CongressionalJustificationURL string   `json:"congressional_justification_url,omitempty"`
	AboutAgencyData               *string  `json:"about_agency_data"`
	SubtierAgencyCount            int      `json:"subtier_agency_count"`
	DefCodes                      []string `json:"def_codes,omitempty"`
	Messages                      []string `json:"messages"`
}

// TASDiscrepancies holds the account-balance discrepancy totals of a period.
type TASDiscrepancies struct {
	GTASObligationTotal         float64 `json:"gtas_obligation_total"`
	TASAccountsTotal            float64 `json:"tas_accounts_total"`
	TASObligationNotInGTASTotal float64 `json:"tas_obligation_not_in_gtas_total"`
	MissingTASAccountsCount     int     `json:"missing_tas_accounts_count"`
}

// ReportingPeriod is one row of an agency's reporting overview.
type ReportingPeriod struct {
	FiscalYear                        int               `json:"fiscal_year"`
	FiscalPeriod                      int               `json:"fiscal_period"`
	CurrentTotalBudgetAuthorityAmount *float64          `json:"current_total_budget_authority_amount"`
	TotalBudgetaryResources           *float64          `json:"total_budgetary_resources"`
	PercentOfTotalBudgetaryResources  *float64          `json:"percent_of_total_budgetary_resources"`
	RecentPublicationDate             Date              `json:"recent_publication_date"`
	RecentPublicationDateCertified    bool              `json:"recent_publication_date_certified"`
	TASAccountDiscrepanciesTotals     *TASDiscrepancies `json:"tas_account_discrepancies_totals"`
	ObligationDifference              *float64          `json:"obligation_difference"`
	UnlinkedContractAwardCount        *int              `json:"unlinked_contract_award_count"`
	UnlinkedAssistanceAwardCount      *int              `json:"unlinked_assistance_award_count"`
	AssuranceStatementURL             string            `json:"assurance_statement_url"`
}

// ReportingOverviewPage is the EndpointReportingOverview response.
type ReportingOverviewPage struct {
	PageMetadata query.Meta        `json:"page_metadata"`
	Results      []ReportingPeriod `json:"results"`
	Messages     []string          `json:"messages"`
}

// PublicationDate is one submission-history row.
type PublicationDate struct {
	PublicationDate   Date `json:"publication_date"`
	CertificationDate Date `json:"certification_date"`
}

// SubmissionHistoryPage is the EndpointSubmissionHistory response.
type SubmissionHistoryPage struct {
	PageMetadata query.Meta        `json:"page_metadata"`
	Results      []PublicationDate `json:"results"`
	Messages     []string          `json:"messages"`
}

// SubmissionPeriod is one entry of the submission calendar.
type SubmissionPeriod struct {
	PeriodStartDate         Date `json:"period_start_date"`
	PeriodEndDate           Date `json:"period_end_date"`
	SubmissionStartDate     Date `json:"submission_start_date"`
	SubmissionDueDate       Date `json:"submission_due_date"`
	CertificationDueDate    Date `json:"certification_due_date"`
	SubmissionRevealDate    Date `json:"submission_reveal_date"`
	SubmissionFiscalYear    int  `json:"submission_fiscal_year"`
	SubmissionFiscalQuarter int  `json:"submission_fiscal_quarter"`
	SubmissionFiscalMonth   int  `json:"submission_fiscal_month"`
	IsQuarter               bool `json:"is_quarter"`
}

// SubmissionPeriodsResponse is the EndpointSubmissionPeriods response.
type SubmissionPeriodsResponse struct {
	AvailablePeriods []SubmissionPeriod `json:"available_periods"`
}
