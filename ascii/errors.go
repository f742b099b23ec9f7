package ascii

import "github.com/pkg/errors"

// ErrProcessingFailed is the only error a conversion reports to callers.
var ErrProcessingFailed = errors.New("failed to process image")

// ProcessingError hides decoder and resampler details behind
// ErrProcessingFailed while keeping them reachable through Cause for logs.
type ProcessingError struct {
	cause error
}

func newProcessingError(cause error) *ProcessingError {
	return &ProcessingError{cause: cause}
}

func (e *ProcessingError) Error() string { return ErrProcessingFailed.Error() }

// Cause returns the internal error; errors.Cause from pkg/errors follows it.
func (e *ProcessingError) Cause() error { return e.cause }

// Unwrap exposes the internal error to errors.Is and errors.As.
func (e *ProcessingError) Unwrap() error { return e.cause }

// Is matches ErrProcessingFailed.
func (e *ProcessingError) Is(target error) bool { return target == ErrProcessingFailed }
