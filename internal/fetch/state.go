package fetch

// Status is the tag of a ViewState.
type Status int

const (
	// StatusIdle means nothing has been requested yet.
	StatusIdle Status = iota
	// StatusLoading means a request is in flight.
	StatusLoading
	// StatusLoaded means the last request succeeded and Data is set.
	StatusLoaded
	// StatusFailed means the last request failed and Message is set.
	StatusFailed
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ViewState is what a view renders: {loading, error, data}.
type ViewState[T any] struct {
	Status  Status
	Data    T
	Message string
}

// Idle returns the initial state.
func Idle[T any]() ViewState[T] {
	return ViewState[T]{Status: StatusIdle}
}

// Loading returns a loading state with no error.
func Loading[T any]() ViewState[T] {
	return ViewState[T]{Status: StatusLoading}
}

// Loaded returns a success state carrying data.
func Loaded[T any](data T) ViewState[T] {
	return ViewState[T]{Status: StatusLoaded, Data: data}
}

// Failed returns a failure state carrying the user-visible message.
func Failed[T any](message string) ViewState[T] {
	return ViewState[T]{Status: StatusFailed, Message: message}
}

// IsLoading reports whether a request is in flight.
func (s ViewState[T]) IsLoading() bool { return s.Status == StatusLoading }

// IsLoaded reports whether Data is valid.
func (s ViewState[T]) IsLoaded() bool { return s.Status == StatusLoaded }

// HasError reports whether the last request failed.
func (s ViewState[T]) HasError() bool { return s.Status == StatusFailed }

// Settled reports whether the state is Loaded or Failed.
func (s ViewState[T]) Settled() bool {
	return s.Status == StatusLoaded || s.Status == StatusFailed
}
