package strategy

import "fmt"

// genericFailureMessage is used when a failed payload carries no message.
const genericFailureMessage = "Failed to generate strategy"

// TransportError covers network failures, timeouts, non-2xx statuses and
// malformed response bodies. StatusCode is 0 when no HTTP response was received.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transport error for %s (status %d): %s: %v", e.Endpoint, e.StatusCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("transport error for %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// LogicalFailure is a well-formed 2xx response whose payload reports failure
// or lacks the expected strategy field.
type LogicalFailure struct {
	Message string
}

func (e *LogicalFailure) Error() string {
	return fmt.Sprintf("strategy generation failed: %s", e.Message)
}
