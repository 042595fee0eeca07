package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/logging"
	"github.com/spendview/spendview/internal/query"
)

// Transport defaults.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "spendview"

	// maxBodyBytes caps how much of a response is read into memory.
	maxBodyBytes = 32 << 20
)

// HTTPTransport performs GET requests against BaseURL.
type HTTPTransport struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
	Logger    zerolog.Logger
}

var _ fetch.Transport = (*HTTPTransport)(nil)

// NewHTTPTransport returns a transport with a client bounded by timeout.
func NewHTTPTransport(baseURL string, timeout time.Duration, logger zerolog.Logger) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    &http.Client{Timeout: timeout},
		UserAgent: DefaultUserAgent,
		Logger:    logging.ComponentLogger(logger, "api"),
	}
}

// Request implements fetch.Transport. The GET runs on its own goroutine.
func (t *HTTPTransport) Request(ctx context.Context, endpoint string, params query.Params) *fetch.Handle {
	return fetch.Start(ctx, func(ctx context.Context) (fetch.Response, error) {
		return t.do(ctx, endpoint, params)
	})
}

// URL builds the absolute request URL for endpoint and params.
func (t *HTTPTransport) URL(endpoint string, params query.Params) (string, error) {
	path, err := params.ExpandPath(endpoint)
	if err != nil {
		return "", err
	}
	u := strings.TrimRight(t.BaseURL, "/") + path
	if q := params.Values().Encode(); q != "" {
		u += "?" + q
	}
	return u, nil
}

func (t *HTTPTransport) do(ctx context.Context, endpoint string, params query.Params) (fetch.Response, error) {
	u, err := t.URL(endpoint, params)
	if err != nil {
		return fetch.Response{}, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fetch.Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	if traceID := logging.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Request-Id", traceID)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		t.Logger.Debug().Ctx(ctx).Err(err).Str("url", u).Msg("request failed")
		return fetch.Response{}, fetch.NetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fetch.Response{}, fetch.NetworkError(fmt.Errorf("read response: %w", err))
	}

	t.Logger.Debug().Ctx(ctx).
		Str("url", u).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	return fetch.Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}, nil
}
