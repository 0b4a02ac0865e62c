package ollama

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the backend could not be reached at all.
	ErrUnavailable = errors.New("ollama: backend unavailable")
	// ErrTimeout means the call did not finish before its deadline.
	ErrTimeout = errors.New("ollama: request timed out")
	// ErrModelNotFound is returned for HTTP 404 from the backend.
	ErrModelNotFound = errors.New("ollama: model not found")
	// ErrInvalidResponse means the response body could not be decoded.
	ErrInvalidResponse = errors.New("ollama: invalid response")
	// ErrEmptyResponse means the backend produced no text.
	ErrEmptyResponse = errors.New("ollama: empty response")
)

// StatusError is a non-2xx answer other than 404.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("ollama: unexpected status %d: %s", e.Code, e.Body)
}
