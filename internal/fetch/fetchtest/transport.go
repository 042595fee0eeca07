// Package fetchtest provides a scriptable fetch.Transport for tests.
//
// Every request blocks until the test resolves it with Respond, RespondJSON or
// Fail, or until it is cancelled.
package fetchtest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/query"
)

type outcome struct {
	resp fetch.Response
	err  error
}

// Request is one recorded call to Transport.Request.
type Request struct {
	Endpoint string
	Params   query.Params
	Handle   *fetch.Handle

	outcome chan outcome
	ctxDone <-chan struct{}
}

// Respond resolves the request with resp. Responding to a cancelled request
// is a no-op, like a late network reply.
func (r *Request) Respond(resp fetch.Response) {
	select {
	case r.outcome <- outcome{resp: resp}:
	default:
	}
}

// RespondJSON resolves the request with status and v encoded as JSON.
func (r *Request) RespondJSON(status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	r.Respond(fetch.Response{StatusCode: status, Body: body, Header: http.Header{}})
}

// Fail resolves the request with err.
func (r *Request) Fail(err error) {
	select {
	case r.outcome <- outcome{err: err}:
	default:
	}
}

// ContextDone reports whether the request context was cancelled.
func (r *Request) ContextDone() bool {
	select {
	case <-r.ctxDone:
		return true
	default:
		return false
	}
}

// Transport records requests and lets tests resolve them.
type Transport struct {
	mu       sync.Mutex
	requests []*Request
}

// New returns an empty transport.
func New() *Transport {
	return &Transport{}
}

// Request implements fetch.Transport.
func (t *Transport) Request(ctx context.Context, endpoint string, params query.Params) *fetch.Handle {
	r := &Request{
		Endpoint: endpoint,
		Params:   params,
		outcome:  make(chan outcome, 1),
	}

	ready := make(chan struct{})
	r.Handle = fetch.Start(ctx, func(ctx context.Context) (fetch.Response, error) {
		r.ctxDone = ctx.Done()
		close(ready)
		select {
		case o := <-r.outcome:
			return o.resp, o.err
		case <-ctx.Done():
			return fetch.Response{}, ctx.Err()
		}
	})
	<-ready

	t.mu.Lock()
	t.requests = append(t.requests, r)
	t.mu.Unlock()
	return r.Handle
}

// Requests returns all recorded requests in order.
func (t *Transport) Requests() []*Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Request, len(t.requests))
	copy(out, t.requests)
	return out
}

// Count returns the number of recorded requests.
func (t *Transport) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// Last returns the most recent request, or nil.
func (t *Transport) Last() *Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return nil
	}
	return t.requests[len(t.requests)-1]
}

// Recorder collects every state a controller reports through OnChange.
type Recorder[T any] struct {
	mu     sync.Mutex
	states []fetch.ViewState[T]
}

// Record is an OnChange callback.
func (r *Recorder[T]) Record(s fetch.ViewState[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

// States returns the recorded states in order.
func (r *Recorder[T]) States() []fetch.ViewState[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fetch.ViewState[T], len(r.states))
	copy(out, r.states)
	return out
}

// Statuses returns just the recorded status tags.
func (r *Recorder[T]) Statuses() []fetch.Status {
	states := r.States()
	out := make([]fetch.Status, len(states))
	for i, s := range states {
		out[i] = s.Status
	}
	return out
}

// Settled counts Loaded and Failed transitions.
func (r *Recorder[T]) Settled() int {
	n := 0
	for _, s := range r.States() {
		if s.Settled() {
			n++
		}
	}
	return n
}
