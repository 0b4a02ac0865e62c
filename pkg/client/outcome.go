package client

import (
	"context"
	"errors"

	"github.com/pario-ai/llmemo/pkg/ollama"
)

// outcome labels a backend call result for metrics.
func outcome(err error) string {
	var se *ollama.StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ollama.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ollama.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ollama.ErrModelNotFound):
		return "model_not_found"
	case errors.Is(err, ollama.ErrEmptyResponse):
		return "empty"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &se):
		return "status_error"
	default:
		return "error"
	}
}
