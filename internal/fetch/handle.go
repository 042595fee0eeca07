package fetch

import (
	"context"
	"net/http"
	"sync"

	"github.com/spendview/spendview/internal/logging"
)

// Response is the raw result of one request: {status, body}.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// OK reports whether the status is 2xx.
func (r Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Handle is a cancellable reference to one outstanding request.
//
// Cancel resolves the handle with ErrCancelled immediately; the underlying
// work is only asked to stop through its context and may keep running.
type Handle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	resp Response
	err  error
}

// Start runs fn in its own goroutine with a cancellable child of parent and
// returns the handle tracking it.
func Start(parent context.Context, fn func(ctx context.Context) (Response, error)) *Handle {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{
		id:     logging.NewID(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer cancel()
		resp, err := fn(ctx)
		if err == nil && ctx.Err() != nil {
			// Work finished after the parent went away; the caller no longer wants it.
			err = ErrCancelled
		}
		h.finish(resp, err)
	}()

	return h
}

// Resolved returns a handle that is already complete.
func Resolved(resp Response, err error) *Handle {
	h := &Handle{
		id:     logging.NewID(),
		cancel: func() {},
		done:   make(chan struct{}),
	}
	h.finish(resp, err)
	return h
}

// ID returns the handle's unique request ID.
func (h *Handle) ID() string { return h.id }

// Cancel drops the request. It is safe to call more than once and after the
// handle has resolved.
func (h *Handle) Cancel() {
	h.finish(Response{}, ErrCancelled)
	h.cancel()
}

// Done is closed once the handle has resolved or been cancelled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result blocks until the handle is done and returns its outcome.
func (h *Handle) Result() (Response, error) {
	<-h.done
	return h.resp, h.err
}

// Wait is Result bounded by ctx.
func (h *Handle) Wait(ctx context.Context) (Response, error) {
	select {
	case <-h.done:
		return h.resp, h.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Cancelled reports whether the handle resolved as cancelled.
func (h *Handle) Cancelled() bool {
	select {
	case <-h.done:
		return IsCancelled(h.err)
	default:
		return false
	}
}

func (h *Handle) finish(resp Response, err error) {
	h.once.Do(func() {
		h.resp = resp
		h.err = err
		close(h.done)
	})
}
