package orch

import (
	"sync"

	"github.com/rs/zerolog"
)

type State int

const (
	StateInit State = iota
	StateAuthenticated
	StatePeerResolved
	StateJoining
	StateActive
	StateJoinFailed
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAuthenticated:
		return "authenticated"
	case StatePeerResolved:
		return "peer_resolved"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateJoinFailed:
		return "join_failed"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventState EventKind = iota
	EventAttempt
	EventAttemptFailed
	EventRetryWait
	EventTeardown
	EventOutcome
)

func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventAttempt:
		return "attempt"
	case EventAttemptFailed:
		return "attempt_failed"
	case EventRetryWait:
		return "retry_wait"
	case EventTeardown:
		return "teardown"
	case EventOutcome:
		return "outcome"
	default:
		return "unknown"
	}
}

// Event is a discrete status report. Only the fields relevant to Kind are set.
type Event struct {
	Kind     EventKind
	State    State
	Attempt  int
	Of       int
	Err      error
	Teardown *TeardownReport
	Outcome  *RunOutcome
}

type Reporter interface {
	Report(Event)
}

type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) { f(e) }

// Reporters fans an event out to every reporter in order.
type Reporters []Reporter

func (rs Reporters) Report(e Event) {
	for _, r := range rs {
		if r != nil {
			r.Report(e)
		}
	}
}

// LogReporter writes each event as one zerolog line.
type LogReporter struct {
	mu     sync.Mutex
	Logger zerolog.Logger
}

func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{Logger: logger}
}

func (l *LogReporter) Report(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch e.Kind {
	case EventState:
		l.Logger.Info().Str("state", e.State.String()).Msg("state changed")
	case EventAttempt:
		l.Logger.Info().Int("attempt", e.Attempt).Int("of", e.Of).Msg("join attempt")
	case EventAttemptFailed:
		l.Logger.Warn().Err(e.Err).Int("attempt", e.Attempt).Int("of", e.Of).Msg("join attempt failed")
	case EventRetryWait:
		l.Logger.Info().Int("next_attempt", e.Attempt).Int("of", e.Of).Msg("waiting before retry")
	case EventTeardown:
		if e.Teardown == nil {
			return
		}
		ev := l.Logger.Info()
		if e.Teardown.Call == TeardownDiscardFailed || e.Teardown.Connection == TeardownDisconnectFailed {
			ev = l.Logger.Warn()
		}
		if e.Teardown.CallErr != nil {
			ev = ev.AnErr("call_err", e.Teardown.CallErr)
		}
		if e.Teardown.ConnErr != nil {
			ev = ev.AnErr("conn_err", e.Teardown.ConnErr)
		}
		ev.Str("call", e.Teardown.Call.String()).
			Str("connection", e.Teardown.Connection.String()).
			Msg("teardown finished")
	case EventOutcome:
		if e.Outcome == nil {
			return
		}
		ev := l.Logger.Info()
		if e.Outcome.Kind != OutcomeStreamStarted {
			ev = l.Logger.Warn().Err(e.Outcome.Err)
		}
		ev.Str("outcome", e.Outcome.Kind.String()).Int("attempts", e.Outcome.Attempts).Msg("run finished")
	}
}
