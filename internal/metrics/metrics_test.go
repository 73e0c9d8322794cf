package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dkeye/groupcall/internal/app/orch"
)

func TestMetrics_Report(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Report(orch.Event{Kind: orch.EventAttempt, Attempt: 1, Of: 3})
	m.Report(orch.Event{Kind: orch.EventAttemptFailed, Attempt: 1, Of: 3})
	m.Report(orch.Event{Kind: orch.EventRetryWait, Attempt: 2, Of: 3})
	m.Report(orch.Event{Kind: orch.EventAttempt, Attempt: 2, Of: 3})
	m.Report(orch.Event{Kind: orch.EventState, State: orch.StateActive})
	m.Report(orch.Event{Kind: orch.EventTeardown, Teardown: &orch.TeardownReport{
		Call:       orch.TeardownDiscarded,
		Connection: orch.TeardownDisconnected,
	}})
	m.Report(orch.Event{Kind: orch.EventOutcome, Outcome: &orch.RunOutcome{Kind: orch.OutcomeStreamStarted}})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JoinAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JoinFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetryWaits))
	assert.Equal(t, float64(orch.StateActive), testutil.ToFloat64(m.State))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TeardownSteps.WithLabelValues("call", "discarded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("stream_started")))
}
