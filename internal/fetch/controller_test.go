package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/fetch/fetchtest"
	"github.com/spendview/spendview/internal/query"
)

const testEndpoint = "/api/v2/reporting/agencies/{toptier_code}/overview/"

type rowsPage struct {
	Page    int      `json:"page"`
	Results []string `json:"results"`
}

func newController(
	t *testing.T,
	transport fetch.Transport,
) (*fetch.Controller[rowsPage], *fetchtest.Recorder[rowsPage]) {
	t.Helper()
	rec := &fetchtest.Recorder[rowsPage]{}
	c, err := fetch.New(fetch.Options[rowsPage]{
		Endpoint:  testEndpoint,
		Transport: transport,
		OnChange:  rec.Record,
	})
	require.NoError(t, err)
	t.Cleanup(c.Dispose)
	return c, rec
}

func await(t *testing.T, c *fetch.Controller[rowsPage]) fetch.ViewState[rowsPage] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := c.Await(ctx)
	require.NoError(t, err)
	return state
}

// eventuallyStatuses waits for OnChange to have seen exactly want.
// Await can return before the settling transition is delivered.
func eventuallyStatuses(t *testing.T, rec *fetchtest.Recorder[rowsPage], want ...fetch.Status) {
	t.Helper()
	assert.Eventually(t, func() bool { return slices.Equal(rec.Statuses(), want) },
		time.Second, 5*time.Millisecond, "statuses: %v", rec.Statuses())
}

func rows(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "row"
	}
	return out
}

func baseParams() query.Params {
	return query.NewParams().
		WithSort("name", query.SortOrderAsc).
		WithPath("toptier_code", "012")
}

func TestNew_RequiresTransport(t *testing.T) {
	_, err := fetch.New(fetch.Options[rowsPage]{Endpoint: testEndpoint})
	require.ErrorIs(t, err, fetch.ErrNoTransport)
}

func TestController_InitialState(t *testing.T) {
	c, _ := newController(t, fetchtest.New())
	assert.Equal(t, fetch.StatusIdle, c.State().Status)
	_, ok := c.Params()
	assert.False(t, ok)
	assert.False(t, c.Refresh(), "refresh without prior submit must be a no-op")
}

func TestController_SubmitLoads(t *testing.T) {
	defer goleak.VerifyNone(t)

	transport := fetchtest.New()
	c, rec := newController(t, transport)

	params := baseParams()
	require.True(t, c.Submit(params))
	assert.True(t, c.State().IsLoading())

	req := transport.Last()
	require.NotNil(t, req)
	assert.Equal(t, testEndpoint, req.Endpoint)
	assert.True(t, params.Equal(req.Params))

	req.RespondJSON(http.StatusOK, rowsPage{Page: 1, Results: rows(10)})
	state := await(t, c)

	assert.Equal(t, fetch.StatusLoaded, state.Status)
	assert.Len(t, state.Data.Results, 10)
	assert.Empty(t, state.Message)
	eventuallyStatuses(t, rec, fetch.StatusLoading, fetch.StatusLoaded)
	c.Dispose()
}

// Two quick submits produce exactly one settled transition, from the second.
func TestController_SupersededResultIsSuppressed(t *testing.T) {
	defer goleak.VerifyNone(t)

	transport := fetchtest.New()
	c, rec := newController(t, transport)

	require.True(t, c.Submit(baseParams()))
	require.True(t, c.Submit(baseParams().WithPage(2)))
	require.Equal(t, 2, transport.Count())

	first, second := transport.Requests()[0], transport.Requests()[1]
	assert.True(t, first.Handle.Cancelled(), "superseded handle must be cancelled before the next dispatch")
	assert.True(t, first.ContextDone())

	// A late reply to the first request goes nowhere.
	first.RespondJSON(http.StatusOK, rowsPage{Page: 1, Results: rows(10)})
	second.RespondJSON(http.StatusOK, rowsPage{Page: 2, Results: rows(3)})

	state := await(t, c)
	assert.Equal(t, 2, state.Data.Page)
	assert.Len(t, state.Data.Results, 3)

	eventuallyStatuses(t, rec, fetch.StatusLoading, fetch.StatusLoading, fetch.StatusLoaded)
	assert.Never(t, func() bool { return rec.Settled() != 1 }, 50*time.Millisecond, 5*time.Millisecond)
	c.Dispose()
}

// Page 1 loads, then page 2 supersedes a refresh of page 1 still in flight.
func TestController_PagingScenario(t *testing.T) {
	transport := fetchtest.New()
	c, _ := newController(t, transport)

	page1 := baseParams()
	require.True(t, c.Submit(page1))
	transport.Last().RespondJSON(http.StatusOK, rowsPage{Page: 1, Results: rows(10)})
	state := await(t, c)
	require.True(t, state.IsLoaded())
	assert.Len(t, state.Data.Results, 10)

	require.True(t, c.Refresh())
	refresh := transport.Last()

	require.True(t, c.Submit(page1.WithPage(2)))
	page2 := transport.Last()

	page2.RespondJSON(http.StatusOK, rowsPage{Page: 2, Results: rows(4)})
	refresh.RespondJSON(http.StatusOK, rowsPage{Page: 1, Results: rows(10)})

	state = await(t, c)
	assert.Equal(t, 2, state.Data.Page)
	assert.Never(t, func() bool { return c.State().Data.Page != 2 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestController_DisposeBeforeResolve(t *testing.T) {
	defer goleak.VerifyNone(t)

	transport := fetchtest.New()
	c, rec := newController(t, transport)

	require.True(t, c.Submit(baseParams()))
	req := transport.Last()

	c.Dispose()
	assert.True(t, req.Handle.Cancelled())
	assert.True(t, c.Disposed())

	req.RespondJSON(http.StatusOK, rowsPage{Page: 1, Results: rows(10)})
	assert.Never(t, func() bool { return rec.Settled() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, fetch.StatusLoading, c.State().Status)

	assert.False(t, c.Submit(baseParams().WithPage(2)), "disposed controller must not submit")
	assert.Equal(t, 1, transport.Count())

	_, err := c.Await(context.Background())
	require.ErrorIs(t, err, fetch.ErrDisposed)

	c.Dispose() // idempotent
}

func TestController_IdenticalParamsDoNotRefetch(t *testing.T) {
	transport := fetchtest.New()
	c, _ := newController(t, transport)

	require.True(t, c.Submit(baseParams()))
	assert.False(t, c.Submit(baseParams()))
	assert.False(t, c.Submit(baseParams().Clone()))
	assert.Equal(t, 1, transport.Count())

	transport.Last().RespondJSON(http.StatusOK, rowsPage{Page: 1})
	await(t, c)

	assert.False(t, c.Submit(baseParams()), "settled state with same params must not refetch")
	assert.Equal(t, 1, transport.Count())

	assert.True(t, c.Submit(baseParams().WithFilter("def_codes", "L")))
	assert.Equal(t, 2, transport.Count())
}

func TestController_FailureMessage(t *testing.T) {
	transport := fetchtest.New()
	c, rec := newController(t, transport)

	require.True(t, c.Submit(baseParams()))
	transport.Last().Fail(errors.New("network error"))

	state := await(t, c)
	assert.Equal(t, fetch.StatusFailed, state.Status)
	assert.Equal(t, "network error", state.Message)
	assert.True(t, state.HasError())
	eventuallyStatuses(t, rec, fetch.StatusLoading, fetch.StatusFailed)
}

func TestController_FailureThenRecover(t *testing.T) {
	transport := fetchtest.New()
	c, rec := newController(t, transport)

	require.True(t, c.Submit(baseParams()))
	transport.Last().Fail(errors.New("network error"))
	require.True(t, await(t, c).HasError())

	// No retry: the same params stay failed until the caller acts.
	assert.False(t, c.Submit(baseParams()))
	assert.Equal(t, 1, transport.Count())

	require.True(t, c.Refresh())
	loading := c.State()
	assert.True(t, loading.IsLoading())
	assert.Empty(t, loading.Message, "loading clears the previous error")

	transport.Last().RespondJSON(http.StatusOK, rowsPage{Page: 1, Results: rows(2)})
	assert.True(t, await(t, c).IsLoaded())
	eventuallyStatuses(t, rec,
		fetch.StatusLoading, fetch.StatusFailed, fetch.StatusLoading, fetch.StatusLoaded)
}

func TestController_InvalidResponses(t *testing.T) {
	tests := []struct {
		name    string
		resp    fetch.Response
		wantMsg string
	}{
		{
			name:    "server error with detail",
			resp:    fetch.Response{StatusCode: http.StatusInternalServerError, Body: []byte(`{"detail":"boom"}`)},
			wantMsg: "unexpected status 500: boom",
		},
		{
			name:    "not found plain body",
			resp:    fetch.Response{StatusCode: http.StatusNotFound, Body: []byte("missing")},
			wantMsg: "unexpected status 404: missing",
		},
		{
			name:    "bad json",
			resp:    fetch.Response{StatusCode: http.StatusOK, Body: []byte("{")},
			wantMsg: "decode response: unexpected end of JSON input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := fetchtest.New()
			c, _ := newController(t, transport)
			require.True(t, c.Submit(baseParams()))
			transport.Last().Respond(tt.resp)

			state := await(t, c)
			assert.Equal(t, fetch.StatusFailed, state.Status)
			assert.Equal(t, tt.wantMsg, state.Message)
		})
	}
}

func TestController_SnapshotWakesOnTransition(t *testing.T) {
	transport := fetchtest.New()
	c, _ := newController(t, transport)

	state, changed := c.Snapshot()
	assert.Equal(t, fetch.StatusIdle, state.Status)

	require.True(t, c.Submit(baseParams()))
	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("snapshot channel not closed on transition")
	}

	_, changed = c.Snapshot()
	transport.Last().RespondJSON(http.StatusOK, rowsPage{Page: 1})
	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("snapshot channel not closed on settle")
	}
	assert.True(t, c.State().IsLoaded())
}

func TestController_AwaitHonoursContext(t *testing.T) {
	transport := fetchtest.New()
	c, _ := newController(t, transport)
	require.True(t, c.Submit(baseParams()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	state, err := c.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, state.IsLoading())
}

func TestController_ParentContextCancelled(t *testing.T) {
	transport := fetchtest.New()
	ctx, cancel := context.WithCancel(context.Background())
	rec := &fetchtest.Recorder[rowsPage]{}
	c, err := fetch.New(fetch.Options[rowsPage]{
		Endpoint:  testEndpoint,
		Transport: transport,
		Context:   ctx,
		OnChange:  rec.Record,
	})
	require.NoError(t, err)
	defer c.Dispose()

	require.True(t, c.Submit(baseParams()))
	cancel()

	assert.Eventually(t, func() bool { return transport.Last().ContextDone() }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return rec.Settled() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestController_Params(t *testing.T) {
	c, _ := newController(t, fetchtest.New())
	params := baseParams().WithFilter("fiscal_year", "2021")
	require.True(t, c.Submit(params))

	got, ok := c.Params()
	require.True(t, ok)
	assert.True(t, params.Equal(got))

	// The returned copy is detached from controller state.
	got.Filters["fiscal_year"] = "1999"
	again, _ := c.Params()
	assert.Equal(t, "2021", again.Filters["fiscal_year"])
}

// A slow OnChange must not block Submit, and may read the controller.
func TestController_OnChangeDoesNotBlockSubmit(t *testing.T) {
	defer goleak.VerifyNone(t)

	var (
		c        *fetch.Controller[rowsPage]
		rec      fetchtest.Recorder[rowsPage]
		once     sync.Once
		entered  = make(chan struct{})
		release  = make(chan struct{})
		readable = make(chan bool, 1)
	)
	transport := fetchtest.New()
	c, err := fetch.New(fetch.Options[rowsPage]{
		Endpoint:  testEndpoint,
		Transport: transport,
		OnChange: func(s fetch.ViewState[rowsPage]) {
			rec.Record(s)
			if !s.IsLoaded() {
				return
			}
			once.Do(func() {
				_, ok := c.Params()
				readable <- ok && c.State().Status != fetch.StatusIdle
				close(entered)
				<-release
			})
		},
	})
	require.NoError(t, err)
	defer c.Dispose()

	require.True(t, c.Submit(baseParams()))
	transport.Last().RespondJSON(http.StatusOK, rowsPage{Page: 1, Results: rows(2)})

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange never saw the loaded state")
	}
	assert.True(t, <-readable)

	submitted := make(chan bool, 1)
	go func() { submitted <- c.Submit(baseParams().WithPage(2)) }()
	select {
	case ok := <-submitted:
		assert.True(t, ok)
	case <-time.After(time.Second):
		close(release)
		t.Fatal("Submit blocked behind a running OnChange")
	}
	assert.True(t, c.State().IsLoading())

	close(release)
	transport.Last().RespondJSON(http.StatusOK, rowsPage{Page: 2, Results: rows(1)})
	assert.Equal(t, 2, await(t, c).Data.Page)
	eventuallyStatuses(t, &rec,
		fetch.StatusLoading, fetch.StatusLoaded, fetch.StatusLoading, fetch.StatusLoaded)
}

// OnChange may drive the controller; the transitions it causes follow in order.
func TestController_SubmitFromOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	var (
		c   *fetch.Controller[rowsPage]
		rec fetchtest.Recorder[rowsPage]
	)
	transport := fetchtest.New()
	c, err := fetch.New(fetch.Options[rowsPage]{
		Endpoint:  testEndpoint,
		Transport: transport,
		OnChange: func(s fetch.ViewState[rowsPage]) {
			rec.Record(s)
			if s.IsLoaded() && s.Data.Page == 1 {
				c.Submit(baseParams().WithPage(2))
			}
		},
	})
	require.NoError(t, err)
	defer c.Dispose()

	require.True(t, c.Submit(baseParams()))
	transport.Last().RespondJSON(http.StatusOK, rowsPage{Page: 1, Results: rows(2)})

	require.Eventually(t, func() bool { return transport.Count() == 2 }, 2*time.Second, 5*time.Millisecond)
	transport.Last().RespondJSON(http.StatusOK, rowsPage{Page: 2, Results: rows(1)})

	require.Eventually(t, func() bool {
		s := c.State()
		return s.IsLoaded() && s.Data.Page == 2
	}, 2*time.Second, 5*time.Millisecond)
	eventuallyStatuses(t, &rec,
		fetch.StatusLoading, fetch.StatusLoaded, fetch.StatusLoading, fetch.StatusLoaded)
	c.Dispose()
}
