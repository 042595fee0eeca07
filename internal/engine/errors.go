package engine

import "errors"

// View errors.
var (
	ErrEmptyAgency   = errors.New("agency toptier code is required")
	ErrInvalidPeriod = errors.New("fiscal period must be between 2 and 12")
	ErrInvalidYear   = errors.New("fiscal year must be 2017 or later")
	ErrNoAgencies    = errors.New("at least one agency is required")
)

// minFiscalYear is the first year with agency submissions.
const minFiscalYear = 2017
