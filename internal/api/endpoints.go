package api

// Endpoint templates. {name} placeholders are filled from query.Params.Path.
const (
	EndpointAgencyOverview    = "/api/v2/agency/{toptier_code}/"
	EndpointReportingOverview = "/api/v2/reporting/agencies/{toptier_code}/overview/"
	EndpointSubmissionHistory = "/api/v2/reporting/agencies/{toptier_code}/{fiscal_year}/{fiscal_period}/submission_history/"
	EndpointSubmissionPeriods = "/api/v2/references/submission_periods/"
)

// Path variable names.
const (
	PathToptierCode  = "toptier_code"
	PathFiscalYear   = "fiscal_year"
	PathFiscalPeriod = "fiscal_period"
)

// DefaultBaseURL is the public API host.
const DefaultBaseURL = "https://api.usaspending.gov"

// Sort fields accepted by EndpointReportingOverview.
const (
	SortFiscalYear           = "fiscal_year"
	SortFiscalPeriod         = "fiscal_period"
	SortBudgetAuthority      = "current_total_budget_authority_amount"
	SortPercentOfBudget      = "percent_of_total_budgetary_resources"
	SortRecentPublication    = "recent_publication_date"
	SortMissingTASCount      = "missing_tas_accounts_count"
	SortObligationDiff       = "obligation_difference"
	SortUnlinkedContracts    = "unlinked_contract_award_count"
	SortUnlinkedAssistance   = "unlinked_assistance_award_count"
	SortTASNotInGTASTotal    = "tas_obligation_not_in_gtas_total"
	SortPublicationCertified = "recent_publication_date_certified"
)

// ReportingSortFields lists the overview sort fields in column order.
var ReportingSortFields = []string{
	SortFiscalYear,
	SortPercentOfBudget,
	SortRecentPublication,
	SortMissingTASCount,
	SortObligationDiff,
	SortUnlinkedContracts,
	SortUnlinkedAssistance,
	SortBudgetAuthority,
	SortFiscalPeriod,
	SortTASNotInGTASTotal,
	SortPublicationCertified,
}

// Sort fields for submission history rows, sorted client-side.
const (
	SortPublicationDate   = "publication_date"
	SortCertificationDate = "certification_date"
)
