package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/spendview/spendview/internal/engine/cache"
	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/logging"
	"github.com/spendview/spendview/internal/query"
)

// HeaderCache is set to "HIT" on responses served from the cache.
const HeaderCache = "X-Spendview-Cache"

// CachedTransport serves repeated requests from a cache.Store and stores
// successful responses from Next. Cache failures are logged and never fail a
// request.
type CachedTransport struct {
	Next   fetch.Transport
	Store  cache.Store
	Logger zerolog.Logger
}

var _ fetch.Transport = (*CachedTransport)(nil)

// NewCachedTransport wraps next with store.
func NewCachedTransport(next fetch.Transport, store cache.Store, logger zerolog.Logger) *CachedTransport {
	return &CachedTransport{
		Next:   next,
		Store:  store,
		Logger: logging.ComponentLogger(logger, "cache"),
	}
}

// Request implements fetch.Transport.
func (t *CachedTransport) Request(ctx context.Context, endpoint string, params query.Params) *fetch.Handle {
	if t.Store == nil || !t.Store.IsEnabled() {
		return t.Next.Request(ctx, endpoint, params)
	}

	return fetch.Start(ctx, func(ctx context.Context) (fetch.Response, error) {
		key, err := cache.KeyFor(endpoint, params)
		if err != nil {
			t.Logger.Warn().Ctx(ctx).Err(err).Msg("cache key failed, bypassing cache")
			return t.Next.Request(ctx, endpoint, params).Wait(ctx)
		}

		if entry, getErr := t.Store.Get(ctx, key); getErr == nil {
			t.Logger.Debug().Ctx(ctx).Str("endpoint", endpoint).Str("key", key).
				Dur("age", entry.Age()).Dur("expires_in", entry.TimeUntilExpiration()).Msg("cache hit")
			header := http.Header{}
			header.Set(HeaderCache, "HIT")
			return fetch.Response{StatusCode: http.StatusOK, Body: entry.Data, Header: header}, nil
		} else if !errors.Is(getErr, cache.ErrCacheNotFound) && !errors.Is(getErr, cache.ErrCacheExpired) {
			t.Logger.Warn().Ctx(ctx).Err(getErr).Msg("cache read failed")
		}

		resp, err := t.Next.Request(ctx, endpoint, params).Wait(ctx)
		if err != nil || !resp.OK() {
			return resp, err
		}

		if setErr := t.Store.Set(ctx, key, resp.Body); setErr != nil {
			t.Logger.Warn().Ctx(ctx).Err(setErr).Str("endpoint", endpoint).Msg("cache write failed")
		}
		return resp, nil
	})
}
