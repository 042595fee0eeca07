package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spendview/spendview/internal/query"
)

// Transport issues requests. Request must not block: the work happens behind
// the returned handle.
type Transport interface {
	Request(ctx context.Context, endpoint string, params query.Params) *Handle
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, endpoint string, params query.Params) *Handle

// Request calls f.
func (f TransportFunc) Request(ctx context.Context, endpoint string, params query.Params) *Handle {
	return f(ctx, endpoint, params)
}

// Decoder turns a raw response into the view payload.
type Decoder[T any] func(Response) (T, error)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Detail)
}

// maxDetailLen bounds how much of an error body ends up in a message.
const maxDetailLen = 200

// CheckStatus returns an InvalidResponse error for non-2xx responses. The
// API's {"detail": "..."} body, when present, becomes the message detail.
func CheckStatus(resp Response) error {
	if resp.OK() {
		return nil
	}
	var body struct {
		Detail string `json:"detail"`
	}
	detail := ""
	if err := json.Unmarshal(resp.Body, &body); err == nil && body.Detail != "" {
		detail = body.Detail
	} else {
		detail = strings.TrimSpace(string(resp.Body))
	}
	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen] + "..."
	}
	return InvalidResponse(&StatusError{StatusCode: resp.StatusCode, Detail: detail})
}

// JSONDecoder decodes 2xx JSON bodies into T.
func JSONDecoder[T any]() Decoder[T] {
	return func(resp Response) (T, error) {
		var out T
		if err := CheckStatus(resp); err != nil {
			return out, err
		}
		if err := json.Unmarshal(resp.Body, &out); err != nil {
			return out, InvalidResponsef("decode response: %w", err)
		}
		return out, nil
	}
}
