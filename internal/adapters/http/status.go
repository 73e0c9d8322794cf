package http

import (
	"sync"
	"time"

	"github.com/dkeye/groupcall/internal/app/orch"
)

type TeardownView struct {
	Call        string `json:"call"`
	CallError   string `json:"call_error,omitempty"`
	Connection  string `json:"connection"`
	EngineError string `json:"engine_error,omitempty"`
}

type StatusView struct {
	State       string        `json:"state"`
	Attempt     int           `json:"attempt"`
	MaxAttempts int           `json:"max_attempts"`
	LastError   string        `json:"last_error,omitempty"`
	Outcome     string        `json:"outcome,omitempty"`
	Teardown    *TeardownView `json:"teardown,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Status folds orchestrator events into the view served at /api/status.
type Status struct {
	mu   sync.RWMutex
	view StatusView
	now  func() time.Time
}

func NewStatus() *Status {
	s := &Status{now: time.Now}
	s.view = StatusView{State: orch.StateInit.String(), UpdatedAt: s.now()}
	return s
}

func (s *Status) Report(e orch.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e.Kind {
	case orch.EventState:
		s.view.State = e.State.String()
	case orch.EventAttempt:
		s.view.Attempt, s.view.MaxAttempts = e.Attempt, e.Of
	case orch.EventAttemptFailed:
		if e.Err != nil {
			s.view.LastError = e.Err.Error()
		}
	case orch.EventTeardown:
		if e.Teardown != nil {
			tv := &TeardownView{Call: e.Teardown.Call.String(), Connection: e.Teardown.Connection.String()}
			if e.Teardown.CallErr != nil {
				tv.CallError = e.Teardown.CallErr.Error()
			}
			if e.Teardown.EngineErr != nil {
				tv.EngineError = e.Teardown.EngineErr.Error()
			}
			s.view.Teardown = tv
		}
	case orch.EventOutcome:
		if e.Outcome != nil {
			s.view.Outcome = e.Outcome.Kind.String()
		}
	default:
		return
	}
	s.view.UpdatedAt = s.now()
}

func (s *Status) Snapshot() StatusView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.view
	if v.Teardown != nil {
		td := *v.Teardown
		v.Teardown = &td
	}
	return v
}
