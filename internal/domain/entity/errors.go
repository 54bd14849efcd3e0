package entity

import (
	"errors"
	"fmt"
)

// Standard domain errors
var (
	// Tool layer
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
	ErrExecutionFailure = errors.New("tool execution failed")

	// Gateway layer
	ErrUnknownModel       = errors.New("unknown model")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrBackendRejected    = errors.New("backend rejected request")
	ErrBackendTimeout     = errors.New("backend timed out")

	// Orchestration layer
	ErrStepLimitExceeded = errors.New("step limit exceeded")
	ErrCancelled         = errors.New("run cancelled")
	ErrRateLimitExceeded = errors.New("rate limit exceeded: token budget exhausted")
)

// ProviderError wraps a backend failure with the provider it came from so
// callers can report a meaningful error. It unwraps to both its kind
// sentinel (ErrBackendUnavailable, ErrBackendRejected, ErrBackendTimeout)
// and the underlying provider error.
type ProviderError struct {
	Provider string
	Kind     error
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ErrorKind maps a run error to its taxonomy name for API responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownTool):
		return "UnknownTool"
	case errors.Is(err, ErrInvalidArguments):
		return "InvalidArguments"
	case errors.Is(err, ErrExecutionFailure):
		return "ExecutionFailure"
	case errors.Is(err, ErrUnknownModel):
		return "UnknownModel"
	case errors.Is(err, ErrBackendUnavailable):
		return "BackendUnavailable"
	case errors.Is(err, ErrBackendRejected):
		return "BackendRejected"
	case errors.Is(err, ErrBackendTimeout):
		return "BackendTimeout"
	case errors.Is(err, ErrStepLimitExceeded):
		return "StepLimitExceeded"
	case errors.Is(err, ErrCancelled):
		return "Cancelled"
	case errors.Is(err, ErrRateLimitExceeded):
		return "RateLimitExceeded"
	default:
		return "Internal"
	}
}
