package core

import "time"

// Status is the terminal outcome of a dispatched request.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusCircuitOpen
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCircuitOpen:
		return "circuit_open"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// TestRequest is a single unit of work owned by the dispatcher. Attempt is
// incremented on every send; retries are invisible to the caller.
type TestRequest struct {
	ID      string
	Payload []byte
	Attempt int
}

// ExecutionResult records the terminal outcome of one submitted request.
// Immutable once produced.
type ExecutionResult struct {
	RequestID  string
	Status     Status
	HTTPStatus int
	Body       []byte
	Elapsed    time.Duration
	Attempts   int
	Error      string
}
