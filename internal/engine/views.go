// Package engine holds the views behind each screen and command. A view owns
// one fetch.Controller per logical request, turns user actions into query
// params, and shapes the loaded payloads for display.
package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/spendview/spendview/internal/fetch"
	"github.com/spendview/spendview/internal/logging"
)

// ViewOptions is shared by every view constructor.
type ViewOptions struct {
	// Transport issues requests. Required.
	Transport fetch.Transport

	// Logger receives view and controller logs.
	Logger zerolog.Logger

	// Context is the parent of every request. Defaults to Background.
	Context context.Context
}

// newController builds a controller whose transitions wake n.
func newController[T any](opts ViewOptions, endpoint string, n *notifier, hook func(fetch.ViewState[T])) (*fetch.Controller[T], error) {
	return fetch.New(fetch.Options[T]{
		Endpoint:  endpoint,
		Transport: opts.Transport,
		Context:   opts.Context,
		Logger:    logging.ComponentLogger(opts.Logger, "fetch"),
		OnChange: func(s fetch.ViewState[T]) {
			if hook != nil {
				hook(s)
			}
			n.broadcast()
		},
	})
}

// notifier is a broadcast channel that is closed and replaced on every
// change, so any number of waiters can select on it.
type notifier struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan struct{})}
}

// wait returns a channel closed on the next broadcast or on close.
func (n *notifier) wait() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}

func (n *notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	close(n.ch)
	n.ch = make(chan struct{})
}

func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.ch)
}
