package cli_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/cli"
	"github.com/spendview/spendview/internal/config"
	"github.com/spendview/spendview/internal/engine"
	"github.com/spendview/spendview/internal/fixture"
	"github.com/spendview/spendview/internal/query"
)

// harness runs the root command against a fixture API with an isolated home.
type harness struct {
	t      *testing.T
	srv    *fixture.Server
	url    string
	home   string
	config string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvProjectDir, "")

	srv := fixture.New(nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &harness{
		t:      t,
		srv:    srv,
		url:    ts.URL,
		home:   home,
		config: filepath.Join(home, "config.yaml"),
	}
}

// run executes args and returns stdout and the command error.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	env := map[string]string{
		config.EnvAPIURL: h.url,
		config.EnvHome:   h.home,
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	var stdout, stderr bytes.Buffer
	root := cli.NewRootCmdWithEnv("test", lookup)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", h.config}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func (h *harness) runJSON(out any, args ...string) {
	h.t.Helper()
	stdout, err := h.run(append(args, "-o", "json")...)
	require.NoError(h.t, err)
	require.NoError(h.t, json.Unmarshal([]byte(stdout), out), "stdout: %s", stdout)
}

func TestAgencyOverview_Table(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("agency", "overview", "012")
	require.NoError(t, err)
	assert.Contains(t, out, "Department of Agriculture")
	assert.Contains(t, out, "USDA")
	assert.Contains(t, out, "17")
	assert.Contains(t, out, "https://www.usda.gov/")
}

func TestAgencyOverview_JSON(t *testing.T) {
	h := newHarness(t)

	var agency api.AgencyOverview
	h.runJSON(&agency, "agency", "overview", "097")
	assert.Equal(t, "Department of Defense", agency.Name)
	assert.Equal(t, "DOD", agency.Abbreviation)
	assert.Equal(t, 27, agency.SubtierAgencyCount)
}

func TestAgencyOverview_UnknownAgency(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("agency", "overview", "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

type periodsJSON struct {
	Query struct {
		Agency string `json:"agency"`
		Page   int    `json:"page"`
		Limit  int    `json:"limit"`
		Sort   string `json:"sort"`
		Order  string `json:"order"`
	} `json:"query"`
	Meta struct {
		Page    int  `json:"page"`
		Total   int  `json:"total"`
		HasNext bool `json:"hasNext"`
	} `json:"meta"`
	Rows []api.ReportingPeriodRow `json:"rows"`
}

func TestAgencyPeriods(t *testing.T) {
	h := newHarness(t)

	t.Run("defaults", func(t *testing.T) {
		var out periodsJSON
		h.runJSON(&out, "agency", "periods", "012")
		assert.Equal(t, "012", out.Query.Agency)
		assert.Equal(t, api.SortBudgetAuthority, out.Query.Sort)
		assert.Equal(t, "desc", out.Query.Order)
		assert.Equal(t, config.DefaultPageSize, out.Query.Limit)
		assert.Equal(t, 12, out.Meta.Total)
		assert.True(t, out.Meta.HasNext)
		assert.Len(t, out.Rows, 10)
	})

	t.Run("sorted last page", func(t *testing.T) {
		var out periodsJSON
		h.runJSON(&out, "agency", "periods", "012", "--sort", "fiscal_year:asc", "--limit", "5", "--page", "3")
		assert.Equal(t, 3, out.Meta.Page)
		assert.False(t, out.Meta.HasNext)
		require.Len(t, out.Rows, 2)
		assert.Equal(t, 2021, out.Rows[0].FiscalYear)
	})

	t.Run("table", func(t *testing.T) {
		out, err := h.run("agency", "periods", "020", "--limit", "3")
		require.NoError(t, err)
		assert.Contains(t, out, api.ReportingPeriodColumns[0])
		assert.Contains(t, out, "Page 1 of 4 (12 periods")
	})

	t.Run("invalid sort field", func(t *testing.T) {
		_, err := h.run("agency", "periods", "012", "--sort", "nope")
		require.Error(t, err)
	})

	t.Run("limit out of range", func(t *testing.T) {
		_, err := h.run("agency", "periods", "012", "--limit", "101")
		require.ErrorIs(t, err, query.ErrInvalidLimit)
	})
}

func TestAgencyPublications(t *testing.T) {
	h := newHarness(t)

	var view engine.PublicationDatesView
	h.runJSON(&view, "agency", "publications", "012", "--fy", "2020", "--period", "9")
	assert.Len(t, view.Rows, 5)
	assert.Equal(t, 5, view.Meta.Total)
	assert.Equal(t, "08/01/2020", view.SubmissionDue)
	assert.Equal(t, "08/15/2020", view.CertificationDue)

	t.Run("paged and sorted", func(t *testing.T) {
		var paged engine.PublicationDatesView
		h.runJSON(&paged, "agency", "publications", "012", "--fy", "2020", "--period", "9",
			"--limit", "2", "--page", "3", "--sort", "publication_date:asc")
		assert.Equal(t, 3, paged.Query.Page)
		assert.Len(t, paged.Rows, 1)
		assert.Equal(t, "asc", paged.Query.Order)
	})

	t.Run("requires period", func(t *testing.T) {
		_, err := h.run("agency", "publications", "012", "--fy", "2020")
		require.Error(t, err)
	})
}

func TestPeriods(t *testing.T) {
	h := newHarness(t)

	var periods []struct {
		FiscalYear int  `json:"submission_fiscal_year"`
		IsQuarter  bool `json:"is_quarter"`
	}
	h.runJSON(&periods, "periods", "--fy", "2021")
	require.Len(t, periods, 15)
	quarters := 0
	for _, p := range periods {
		assert.Equal(t, 2021, p.FiscalYear)
		if p.IsQuarter {
			quarters++
		}
	}
	assert.Equal(t, 4, quarters)

	out, err := h.run("periods", "--fy", "2020")
	require.NoError(t, err)
	assert.Contains(t, out, "Submission Due")
	assert.Contains(t, out, "Q3")
}

func TestAgencyCompare(t *testing.T) {
	h := newHarness(t)

	t.Run("all succeed", func(t *testing.T) {
		var summaries []engine.AgencySummary
		h.runJSON(&summaries, "agency", "compare", "012", "020", "075")
		require.Len(t, summaries, 3)
		assert.Equal(t, "Department of the Treasury", summaries[1].Name)
		for _, s := range summaries {
			assert.True(t, s.OK(), s.Error)
			require.NotNil(t, s.Latest)
			assert.Equal(t, 2021, s.Latest.FiscalYear)
		}
	})

	t.Run("partial failure", func(t *testing.T) {
		out, err := h.run("agency", "compare", "012", "999")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2 agencies failed")
		assert.Contains(t, out, "Department of Agriculture")
	})
}

func TestAgencyBrowse_NotATerminal(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("agency", "browse", "012")
	require.ErrorIs(t, err, cli.ErrNotTerminal)
}

func TestResponseCache(t *testing.T) {
	h := newHarness(t)
	path := "/api/v2/agency/012/"

	_, err := h.run("agency", "overview", "012")
	require.NoError(t, err)
	_, err = h.run("agency", "overview", "012")
	require.NoError(t, err)
	assert.Equal(t, 1, h.srv.Hits(path), "second run is served from cache")

	_, err = h.run("--no-cache", "agency", "overview", "012")
	require.NoError(t, err)
	assert.Equal(t, 2, h.srv.Hits(path))

	var stats struct {
		Backend string `json:"backend"`
		Entries int    `json:"entries"`
	}
	h.runJSON(&stats, "cache", "stats")
	assert.Equal(t, "file", stats.Backend)
	assert.Equal(t, 1, stats.Entries)

	out, err := h.run("cache", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 expired entries.")

	out, err = h.run("cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared.")

	h.runJSON(&stats, "cache", "stats")
	assert.Zero(t, stats.Entries)
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, h.config)
	_, err = os.Stat(h.config)
	require.NoError(t, err)

	_, err = h.run("config", "init")
	require.Error(t, err, "init refuses to overwrite")
	_, err = h.run("config", "init", "--force")
	require.NoError(t, err)

	_, err = h.run("config", "set", "output.page_size", "25")
	require.NoError(t, err)

	out, err = h.run("config", "get", "output.page_size")
	require.NoError(t, err)
	assert.Equal(t, "25", strings.TrimSpace(out))

	var periods periodsJSON
	h.runJSON(&periods, "agency", "periods", "012")
	assert.Equal(t, 25, periods.Query.Limit, "configured page size is the default limit")

	_, err = h.run("config", "set", "no.such.key", "x")
	require.ErrorIs(t, err, config.ErrUnknownKey)

	_, err = h.run("config", "set", "output.page_size", "500")
	require.Error(t, err)

	out, err = h.run("config", "show", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "page_size: 25")
	assert.Contains(t, out, "base_url: "+h.url, "env overrides are part of the effective config")
}

func TestRootFlags(t *testing.T) {
	h := newHarness(t)

	t.Run("negative cache ttl", func(t *testing.T) {
		_, err := h.run("--cache-ttl", "-1", "agency", "overview", "012")
		require.Error(t, err)
	})

	t.Run("unknown output format", func(t *testing.T) {
		_, err := h.run("-o", "xml", "agency", "overview", "012")
		require.ErrorIs(t, err, config.ErrInvalidFormat)
	})

	t.Run("api-url flag wins over env", func(t *testing.T) {
		_, err := h.run("--no-cache", "--api-url", "http://127.0.0.1:1", "agency", "overview", "012")
		require.Error(t, err)
	})

	t.Run("yaml output", func(t *testing.T) {
		out, err := h.run("-o", "yaml", "agency", "overview", "075")
		require.NoError(t, err)
		assert.Contains(t, out, "abbreviation: HHS")
	})
}
