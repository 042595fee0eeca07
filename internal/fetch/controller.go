package fetch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/spendview/spendview/internal/query"
)

// Options configures a Controller.
type Options[T any] struct {
	// Endpoint is the endpoint template passed to the transport.
	Endpoint string

	// Transport issues the requests. Required.
	Transport Transport

	// Decode turns a response into the payload. Defaults to JSONDecoder[T].
	Decode Decoder[T]

	// Context is the parent of every request context. Defaults to Background.
	Context context.Context

	// Logger receives debug logs for every transition.
	Logger zerolog.Logger

	// OnChange is called after every transition, in transition order, with no
	// controller lock held. It may read or drive the controller; transitions
	// it causes are delivered after it returns.
	OnChange func(ViewState[T])
}

// Controller owns one logical request and its ViewState.
//
// It is safe for concurrent use. At most one handle is live at a time, and a
// handle that is no longer current can never change the state.
type Controller[T any] struct {
	endpoint  string
	transport Transport
	decode    Decoder[T]
	ctx       context.Context
	logger    zerolog.Logger
	onChange  func(ViewState[T])

	mu        sync.Mutex
	state     ViewState[T]
	current   *Handle
	params    query.Params
	hasParams bool
	disposed  bool
	changed   chan struct{}

	// pending holds transitions not yet passed to OnChange. delivering is set
	// while one goroutine drains it.
	pending    []ViewState[T]
	delivering bool
}

// New creates a controller in the Idle state.
func New[T any](opts Options[T]) (*Controller[T], error) {
	if opts.Transport == nil {
		return nil, ErrNoTransport
	}
	if opts.Decode == nil {
		opts.Decode = JSONDecoder[T]()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	return &Controller[T]{
		endpoint:  opts.Endpoint,
		transport: opts.Transport,
		decode:    opts.Decode,
		ctx:       opts.Context,
		logger:    opts.Logger.With().Str("endpoint", opts.Endpoint).Logger(),
		onChange:  opts.OnChange,
		state:     Idle[T](),
		changed:   make(chan struct{}),
	}, nil
}

// Submit requests params. It returns false without doing anything when the
// controller is disposed or params equal the last submitted params.
// Otherwise the live handle is cancelled, a new request is dispatched and the
// state becomes Loading.
func (c *Controller[T]) Submit(params query.Params) bool {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	if c.hasParams && c.params.Equal(params) {
		c.mu.Unlock()
		c.logger.Debug().Str("params", params.String()).Msg("params unchanged, not refetching")
		return false
	}
	c.dispatchLocked(params.Clone())
	c.notifyAndUnlock()
	return true
}

// Refresh re-issues the last submitted params, superseding any live request.
// It returns false if nothing was ever submitted or the controller is disposed.
func (c *Controller[T]) Refresh() bool {
	c.mu.Lock()
	if c.disposed || !c.hasParams {
		c.mu.Unlock()
		return false
	}
	c.dispatchLocked(c.params)
	c.notifyAndUnlock()
	return true
}

// Dispose cancels the live request and stops all further transitions.
// Waiters blocked in Await return ErrDisposed.
func (c *Controller[T]) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	if c.current != nil {
		c.logger.Debug().Str("request_id", c.current.ID()).Msg("disposing live request")
		c.current.Cancel()
		c.current = nil
	}
	close(c.changed)
}

// State returns the current view state.
func (c *Controller[T]) State() ViewState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current state and a channel closed on the next
// transition (or on Dispose).
func (c *Controller[T]) Snapshot() (ViewState[T], <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.changed
}

// Params returns the last submitted params.
func (c *Controller[T]) Params() (query.Params, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.Clone(), c.hasParams
}

// Disposed reports whether Dispose has been called.
func (c *Controller[T]) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Await blocks until the state is Loaded or Failed. It returns ErrDisposed if
// the controller is disposed first, or ctx.Err() if ctx ends first. Await on
// an Idle controller waits for a Submit.
func (c *Controller[T]) Await(ctx context.Context) (ViewState[T], error) {
	for {
		c.mu.Lock()
		state, changed, disposed := c.state, c.changed, c.disposed
		c.mu.Unlock()

		if state.Settled() {
			return state, nil
		}
		if disposed {
			return state, ErrDisposed
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// dispatchLocked cancels the live handle, then issues the new request.
// Must be called with mu held.
func (c *Controller[T]) dispatchLocked(params query.Params) {
	if c.current != nil {
		c.logger.Debug().Str("request_id", c.current.ID()).Msg("superseding live request")
		c.current.Cancel()
	}

	c.params = params
	c.hasParams = true

	h := c.transport.Request(c.ctx, c.endpoint, params)
	c.current = h
	c.logger.Debug().
		Str("request_id", h.ID()).
		Str("params", params.String()).
		Msg("request dispatched")

	c.setLocked(Loading[T]())
	go c.watch(h)
}

// watch applies h's outcome if h is still the live handle.
func (c *Controller[T]) watch(h *Handle) {
	<-h.Done()
	resp, err := h.Result()

	var next ViewState[T]
	switch {
	case err != nil && IsCancelled(err):
		c.logger.Debug().Str("request_id", h.ID()).Msg("request cancelled, state unchanged")
		return
	case err != nil:
		next = Failed[T](Classify(err).Error())
	default:
		data, decodeErr := c.decode(resp)
		if decodeErr != nil {
			next = Failed[T](Classify(decodeErr).Error())
		} else {
			next = Loaded(data)
		}
	}

	c.mu.Lock()
	if c.disposed || c.current != h {
		c.mu.Unlock()
		c.logger.Debug().Str("request_id", h.ID()).Msg("dropping result of superseded request")
		return
	}
	c.current = nil
	c.setLocked(next)

	event := c.logger.Debug()
	if next.HasError() {
		event = c.logger.Warn().Str("error", next.Message)
	}
	event.Str("request_id", h.ID()).Str("status", next.Status.String()).Msg("request settled")

	c.notifyAndUnlock()
}

// setLocked stores the new state and wakes Snapshot/Await waiters.
// Must be called with mu held.
func (c *Controller[T]) setLocked(next ViewState[T]) {
	c.state = next
	close(c.changed)
	c.changed = make(chan struct{})
}

// notifyAndUnlock queues the current state for OnChange and releases mu. The
// first goroutine to find the queue idle drains it, so OnChange sees
// transitions in order and never runs under mu.
func (c *Controller[T]) notifyAndUnlock() {
	if c.onChange == nil {
		c.mu.Unlock()
		return
	}
	c.pending = append(c.pending, c.state)
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.delivering = false
			c.mu.Unlock()
			return
		}
		next := c.pending[0]
		c.pending[0] = ViewState[T]{}
		c.pending = c.pending[1:]
		c.mu.Unlock()

		c.onChange(next)
	}
}
