package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the topicflux domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("topicflux: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("topicflux: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("topicflux: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("topicflux: invalid configuration")

	// ErrDrainFailed is returned when the final flush at shutdown fails.
	// Lines still pending at that point are lost when the process exits.
	ErrDrainFailed = errors.New("topicflux: final drain failed")

	// ErrSourceClosed is returned when the record source stops delivering
	// before shutdown was requested.
	ErrSourceClosed = errors.New("topicflux: record source closed")
)

// TransportError reports that a batch could not be delivered to the sink
// because the request itself failed (connection refused, timeout, ...).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectedError reports that the sink answered with a client or server error.
type RejectedError struct {
	// Status is the HTTP status code
	Status int

	// Body is the (possibly truncated) response body, useful for diagnosis
	Body string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("sink rejected batch: status=%d body=%s", e.Status, e.Body)
}
