package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestParticipantsOperationCounter(t *testing.T) {
	m := Participants()
	if Participants() != m {
		t.Fatalf("expected singleton registry")
	}
	before := testutil.ToFloat64(m.operations.WithLabelValues("register_store", "ok"))
	m.ObserveOperation("register_store", "ok")
	after := testutil.ToFloat64(m.operations.WithLabelValues("register_store", "ok"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
	m.SetHeight(42)
	if got := testutil.ToFloat64(m.height); got != 42 {
		t.Fatalf("unexpected height gauge %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *ParticipantsMetrics
	m.ObserveOperation("x", "ok")
	m.SetHeight(1)
	var r *RPCMetrics
	r.Observe("x", 0, time.Millisecond)
	r.IncThrottle()
}
