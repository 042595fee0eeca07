package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHandle_Resolves(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := Start(context.Background(), func(context.Context) (Response, error) {
		return Response{StatusCode: http.StatusOK, Body: []byte("ok")}, nil
	})

	resp, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.True(t, resp.OK())
	assert.False(t, h.Cancelled())
	assert.NotEmpty(t, h.ID())
}

func TestHandle_CancelResolvesImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	h := Start(context.Background(), func(ctx context.Context) (Response, error) {
		close(started)
		<-ctx.Done()
		return Response{}, ctx.Err()
	})
	<-started

	h.Cancel()
	h.Cancel()

	_, err := h.Result()
	require.ErrorIs(t, err, ErrCancelled)
	assert.True(t, h.Cancelled())
}

func TestHandle_CancelWinsOverLateResult(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	h := Start(context.Background(), func(context.Context) (Response, error) {
		defer close(finished)
		<-release
		return Response{StatusCode: http.StatusOK}, nil
	})

	h.Cancel()
	close(release)
	<-finished

	_, err := h.Result()
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestHandle_Wait(t *testing.T) {
	h := Start(context.Background(), func(ctx context.Context) (Response, error) {
		<-ctx.Done()
		return Response{}, ctx.Err()
	})
	defer h.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := h.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolved(t *testing.T) {
	h := Resolved(Response{StatusCode: http.StatusAccepted}, nil)
	select {
	case <-h.Done():
	default:
		t.Fatal("resolved handle must be done")
	}
	resp, err := h.Result()
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	h.Cancel()
	_, err = h.Result()
	assert.NoError(t, err, "cancel after resolution keeps the result")
}

func TestClassify(t *testing.T) {
	netErr := errors.New("network error")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "plain error", err: netErr, want: KindNetwork},
		{name: "cancelled sentinel", err: ErrCancelled, want: KindCancelled},
		{name: "context cancelled", err: fmt.Errorf("get: %w", context.Canceled), want: KindCancelled},
		{name: "network wrapping cancel", err: NetworkError(context.Canceled), want: KindCancelled},
		{name: "deadline", err: context.DeadlineExceeded, want: KindNetwork},
		{name: "invalid", err: InvalidResponsef("bad %s", "json"), want: KindInvalidResponse},
		{name: "wrapped invalid", err: fmt.Errorf("outer: %w", InvalidResponse(netErr)), want: KindInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).Kind)
		})
	}

	assert.Nil(t, Classify(nil))
	assert.False(t, IsCancelled(nil))
	assert.Equal(t, "network error", NetworkError(netErr).Error())
}

func TestCheckStatus(t *testing.T) {
	assert.NoError(t, CheckStatus(Response{StatusCode: http.StatusOK}))

	err := CheckStatus(Response{StatusCode: http.StatusBadRequest, Body: []byte(`{"detail":"Invalid fiscal_period"}`)})
	require.Error(t, err)
	assert.Equal(t, "unexpected status 400: Invalid fiscal_period", err.Error())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, KindInvalidResponse, Classify(err).Kind)

	assert.Equal(t, "unexpected status 502", CheckStatus(Response{StatusCode: http.StatusBadGateway}).Error())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "loaded", StatusLoaded.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "cancelled", KindCancelled.String())
}
