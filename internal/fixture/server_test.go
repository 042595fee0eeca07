package fixture

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendview/spendview/internal/api"
)

func doGet(t *testing.T, srv *Server, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
	}
	return w.Code
}

func TestAgencyOverview(t *testing.T) {
	srv := New(nil)

	var agency api.AgencyOverview
	require.Equal(t, http.StatusOK, doGet(t, srv, "/api/v2/agency/012/", &agency))
	assert.Equal(t, "Department of Agriculture", agency.Name)
	assert.Equal(t, "USDA", agency.Abbreviation)

	assert.Equal(t, http.StatusNotFound, doGet(t, srv, "/api/v2/agency/999/", nil))
}

func TestReportingOverview_DefaultSortAndPaging(t *testing.T) {
	srv := New(nil)

	var page api.ReportingOverviewPage
	require.Equal(t, http.StatusOK, doGet(t, srv, "/api/v2/reporting/agencies/012/overview/?page=1&limit=5", &page))
	assert.Len(t, page.Results, 5)
	assert.Equal(t, 12, page.PageMetadata.Total)
	assert.True(t, page.PageMetadata.HasNext)
	assert.False(t, page.PageMetadata.HasPrevious)

	for i := 1; i < len(page.Results); i++ {
		assert.GreaterOrEqual(t,
			*page.Results[i-1].CurrentTotalBudgetAuthorityAmount,
			*page.Results[i].CurrentTotalBudgetAuthorityAmount,
			"default order is budget authority descending")
	}

	var last api.ReportingOverviewPage
	require.Equal(t, http.StatusOK, doGet(t, srv, "/api/v2/reporting/agencies/012/overview/?page=3&limit=5", &last))
	assert.Len(t, last.Results, 2)
	assert.False(t, last.PageMetadata.HasNext)

	var past api.ReportingOverviewPage
	require.Equal(t, http.StatusOK, doGet(t, srv, "/api/v2/reporting/agencies/012/overview/?page=9&limit=5", &past))
	assert.Empty(t, past.Results)
}

func TestReportingOverview_SortAscending(t *testing.T) {
	srv := New(nil)

	var page api.ReportingOverviewPage
	require.Equal(t, http.StatusOK,
		doGet(t, srv, "/api/v2/reporting/agencies/097/overview/?sort=fiscal_year&order=asc&limit=100", &page))
	require.Len(t, page.Results, 12)
	assert.Equal(t, 2020, page.Results[0].FiscalYear)
	assert.Equal(t, 6, page.Results[0].FiscalPeriod)
	assert.Equal(t, 2021, page.Results[11].FiscalYear)
}

func TestReportingOverview_Validation(t *testing.T) {
	srv := New(nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"bad sort", "/api/v2/reporting/agencies/012/overview/?sort=nope", http.StatusUnprocessableEntity},
		{"bad order", "/api/v2/reporting/agencies/012/overview/?order=sideways", http.StatusUnprocessableEntity},
		{"limit too big", "/api/v2/reporting/agencies/012/overview/?limit=101", http.StatusUnprocessableEntity},
		{"page zero", "/api/v2/reporting/agencies/012/overview/?page=0", http.StatusUnprocessableEntity},
		{"unknown agency", "/api/v2/reporting/agencies/999/overview/", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, doGet(t, srv, tt.path, nil))
		})
	}
}

func TestSubmissionHistory(t *testing.T) {
	srv := New(nil)

	var page api.SubmissionHistoryPage
	require.Equal(t, http.StatusOK,
		doGet(t, srv, "/api/v2/reporting/agencies/012/2020/9/submission_history/?page=1&limit=100", &page))
	require.NotEmpty(t, page.Results)
	assert.Equal(t, len(page.Results), page.PageMetadata.Total)
	for i := 1; i < len(page.Results); i++ {
		assert.False(t, page.Results[i-1].PublicationDate.Before(page.Results[i].PublicationDate.Time))
	}

	assert.Equal(t, http.StatusUnprocessableEntity,
		doGet(t, srv, "/api/v2/reporting/agencies/012/2020/13/submission_history/", nil))
}

func TestSubmissionPeriods(t *testing.T) {
	srv := New(nil)

	var resp api.SubmissionPeriodsResponse
	require.Equal(t, http.StatusOK, doGet(t, srv, "/api/v2/references/submission_periods/", &resp))
	assert.NotEmpty(t, resp.AvailablePeriods)

	d, ok := api.SubmissionDeadlines(2020, 9, resp.AvailablePeriods)
	require.True(t, ok)
	assert.False(t, d.SubmissionDueDate.IsZero())
}

func TestFaultsAndHits(t *testing.T) {
	srv := New(nil)
	path := "/api/v2/agency/012/"

	srv.FailWith(path, http.StatusServiceUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, doGet(t, srv, path, nil))
	assert.Equal(t, http.StatusOK, doGet(t, srv, "/api/v2/agency/020/", nil))

	srv.ClearFaults()
	assert.Equal(t, http.StatusOK, doGet(t, srv, path, nil))
	assert.Equal(t, 2, srv.Hits(path))
	assert.Equal(t, 3, srv.TotalHits())
}

func TestLatency(t *testing.T) {
	srv := New(nil, WithLatency(30*time.Millisecond))
	start := time.Now()
	assert.Equal(t, http.StatusOK, doGet(t, srv, "/api/v2/agency/012/", nil))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	srv.SetLatency(0)
	start = time.Now()
	doGet(t, srv, "/api/v2/agency/012/", nil)
	assert.Less(t, time.Since(start), 30*time.Millisecond)
}

func TestPeriodEnd(t *testing.T) {
	assert.Equal(t, "2019-10-31", periodEnd(2020, 1).Format("2006-01-02"))
	assert.Equal(t, "2019-12-31", periodEnd(2020, 3).Format("2006-01-02"))
	assert.Equal(t, "2020-02-29", periodEnd(2020, 5).Format("2006-01-02"))
	assert.Equal(t, "2020-09-30", periodEnd(2020, 12).Format("2006-01-02"))
}
