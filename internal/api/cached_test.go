package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendview/spendview/internal/api"
	"github.com/spendview/spendview/internal/engine/cache"
	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/query"
)

const overviewPath = "/api/v2/agency/012/"

func overviewParams(code string) query.Params {
	return query.Params{}.WithPath(api.PathToptierCode, code)
}

func newCachedTransport(t *testing.T, baseURL string, enabled bool) (*api.CachedTransport, *cache.FileStore) {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir(), enabled, cache.DefaultTTLSeconds, cache.DefaultCacheMaxSizeMB)
	require.NoError(t, err)
	next := api.NewHTTPTransport(baseURL, time.Second, zerolog.Nop())
	return api.NewCachedTransport(next, store, zerolog.Nop()), store
}

func TestCachedTransport_HitSkipsNetwork(t *testing.T) {
	srv, ts := newFixture(t)
	tr, store := newCachedTransport(t, ts.URL, true)
	ctx := context.Background()

	first, err := tr.Request(ctx, api.EndpointAgencyOverview, overviewParams("012")).Result()
	require.NoError(t, err)
	require.True(t, first.OK())
	assert.Empty(t, first.Header.Get(api.HeaderCache))

	second, err := tr.Request(ctx, api.EndpointAgencyOverview, overviewParams("012")).Result()
	require.NoError(t, err)
	assert.Equal(t, "HIT", second.Header.Get(api.HeaderCache))
	assert.JSONEq(t, string(first.Body), string(second.Body))
	assert.Equal(t, 1, srv.Hits(overviewPath))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestCachedTransport_DecodesHit(t *testing.T) {
	_, ts := newFixture(t)
	tr, _ := newCachedTransport(t, ts.URL, true)

	c, err := fetch.New(fetch.Options[api.AgencyOverview]{
		Endpoint:  api.EndpointAgencyOverview,
		Transport: tr,
	})
	require.NoError(t, err)
	defer c.Dispose()

	require.True(t, c.Submit(overviewParams("075")))
	state := awaitState(t, c)
	require.True(t, state.IsLoaded(), state.Message)

	require.True(t, c.Refresh())
	state = awaitState(t, c)
	require.True(t, state.IsLoaded(), state.Message)
	assert.Equal(t, "HHS", state.Data.Abbreviation)
}

func TestCachedTransport_ErrorsAreNotCached(t *testing.T) {
	srv, ts := newFixture(t)
	tr, store := newCachedTransport(t, ts.URL, true)
	ctx := context.Background()

	srv.FailWith(overviewPath, http.StatusBadGateway)
	resp, err := tr.Request(ctx, api.EndpointAgencyOverview, overviewParams("012")).Result()
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	srv.ClearFaults()
	resp, err = tr.Request(ctx, api.EndpointAgencyOverview, overviewParams("012")).Result()
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, 2, srv.Hits(overviewPath))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestCachedTransport_DisabledStorePassesThrough(t *testing.T) {
	srv, ts := newFixture(t)
	tr, _ := newCachedTransport(t, ts.URL, false)
	ctx := context.Background()

	for range 3 {
		resp, err := tr.Request(ctx, api.EndpointAgencyOverview, overviewParams("012")).Result()
		require.NoError(t, err)
		assert.Empty(t, resp.Header.Get(api.HeaderCache))
	}
	assert.Equal(t, 3, srv.Hits(overviewPath))
}

func TestCachedTransport_CancelDuringMiss(t *testing.T) {
	srv, ts := newFixture(t)
	srv.SetLatency(5 * time.Second)
	tr, store := newCachedTransport(t, ts.URL, true)

	h := tr.Request(context.Background(), api.EndpointAgencyOverview, overviewParams("012"))
	h.Cancel()
	_, err := h.Result()
	require.ErrorIs(t, err, fetch.ErrCancelled)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}
