package fetch

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a request failure.
type Kind int

const (
	// KindNetwork covers transport failures (dial, TLS, timeouts, resets).
	KindNetwork Kind = iota
	// KindInvalidResponse covers non-2xx statuses and undecodable bodies.
	KindInvalidResponse
	// KindCancelled marks a request that was superseded or disposed.
	KindCancelled
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindInvalidResponse:
		return "invalid_response"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sentinel errors.
var (
	// ErrCancelled is returned by a handle that was cancelled before it resolved.
	ErrCancelled = errors.New("request cancelled")
	// ErrDisposed is returned when a disposed controller is asked to do work.
	ErrDisposed = errors.New("controller disposed")
	// ErrNoTransport is returned when a controller is built without a transport.
	ErrNoTransport = errors.New("fetch: transport is required")
)

// Error is a classified request failure. Error() returns the underlying
// description unchanged so it can be shown to the user verbatim.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NetworkError wraps err as a KindNetwork failure.
func NetworkError(err error) *Error { return &Error{Kind: KindNetwork, Err: err} }

// InvalidResponse wraps err as a KindInvalidResponse failure.
func InvalidResponse(err error) *Error { return &Error{Kind: KindInvalidResponse, Err: err} }

// InvalidResponsef formats a KindInvalidResponse failure.
func InvalidResponsef(format string, args ...any) *Error {
	return InvalidResponse(fmt.Errorf(format, args...))
}

// Classify returns err as an *Error. Unclassified errors are network failures,
// context cancellation is KindCancelled. A nil err returns nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCancelled, Err: err}
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return NetworkError(err)
}

// IsCancelled reports whether err means the request was intentionally dropped.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Kind == KindCancelled
}
