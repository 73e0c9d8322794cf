// Package metrics exposes Prometheus collectors fed by orchestrator events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dkeye/groupcall/internal/app/orch"
)

// Metrics keeps labels low-cardinality: no run ids or chat ids.
type Metrics struct {
	JoinAttempts  prometheus.Counter
	JoinFailures  prometheus.Counter
	RetryWaits    prometheus.Counter
	Outcomes      *prometheus.CounterVec
	TeardownSteps *prometheus.CounterVec
	State         prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		JoinAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "groupcall_join_attempts_total",
			Help: "Total number of join attempts.",
		}),
		JoinFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "groupcall_join_failures_total",
			Help: "Total number of failed join attempts, including timeouts.",
		}),
		RetryWaits: f.NewCounter(prometheus.CounterOpts{
			Name: "groupcall_retry_waits_total",
			Help: "Total number of inter-attempt delays.",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "groupcall_run_outcomes_total",
			Help: "Total number of finished runs, by outcome.",
		}, []string{"outcome"}),
		TeardownSteps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "groupcall_teardown_steps_total",
			Help: "Total number of teardown step results, by step and result.",
		}, []string{"step", "result"}),
		State: f.NewGauge(prometheus.GaugeOpts{
			Name: "groupcall_session_state",
			Help: "Current session state (0=init .. 6=torn_down).",
		}),
	}
}

func (m *Metrics) Report(e orch.Event) {
	switch e.Kind {
	case orch.EventState:
		m.State.Set(float64(e.State))
	case orch.EventAttempt:
		m.JoinAttempts.Inc()
	case orch.EventAttemptFailed:
		m.JoinFailures.Inc()
	case orch.EventRetryWait:
		m.RetryWaits.Inc()
	case orch.EventTeardown:
		if e.Teardown != nil {
			m.TeardownSteps.WithLabelValues("call", e.Teardown.Call.String()).Inc()
			m.TeardownSteps.WithLabelValues("connection", e.Teardown.Connection.String()).Inc()
		}
	case orch.EventOutcome:
		if e.Outcome != nil {
			m.Outcomes.WithLabelValues(e.Outcome.Kind.String()).Inc()
		}
	}
}
