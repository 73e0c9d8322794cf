package orch

import (
	"errors"
	"fmt"
)

var (
	ErrAuthentication   = errors.New("authentication failed")
	ErrAttemptTimeout   = errors.New("join attempt timed out")
	ErrRetriesExhausted = errors.New("join retries exhausted")
	ErrCancelled        = errors.New("cancelled")
)

type OutcomeKind int

const (
	OutcomeStreamStarted OutcomeKind = iota
	OutcomeRetriesExhausted
	OutcomeCancelled
	OutcomeUnexpectedFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeStreamStarted:
		return "stream_started"
	case OutcomeRetriesExhausted:
		return "retries_exhausted"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeUnexpectedFailure:
		return "unexpected_failure"
	default:
		return "unknown"
	}
}

// RunOutcome is produced once per run. Err carries the detail for every kind
// except OutcomeStreamStarted.
type RunOutcome struct {
	Kind     OutcomeKind
	Err      error
	Attempts int
	Teardown TeardownReport
}

func (o RunOutcome) String() string {
	if o.Err == nil {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s: %v", o.Kind, o.Err)
}

type TeardownResult int

const (
	// TeardownSkipped means the step had nothing to act on.
	TeardownSkipped TeardownResult = iota
	TeardownDiscarded
	TeardownNoActiveCall
	TeardownDiscardFailed
	TeardownDisconnected
	TeardownAlreadyDisconnected
	TeardownDisconnectFailed
)

func (r TeardownResult) String() string {
	switch r {
	case TeardownSkipped:
		return "skipped"
	case TeardownDiscarded:
		return "discarded"
	case TeardownNoActiveCall:
		return "no_active_call"
	case TeardownDiscardFailed:
		return "discard_failed"
	case TeardownDisconnected:
		return "disconnected"
	case TeardownAlreadyDisconnected:
		return "already_disconnected"
	case TeardownDisconnectFailed:
		return "disconnect_failed"
	default:
		return "unknown"
	}
}

// TeardownReport is informational; nothing in it is ever escalated.
type TeardownReport struct {
	Call       TeardownResult
	CallErr    error
	Connection TeardownResult
	ConnErr    error
	// EngineErr is set when the call engine failed to close or panicked.
	EngineErr error
}
