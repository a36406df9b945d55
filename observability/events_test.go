package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEventMetricsCountsByType(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.committed.WithLabelValues("participants.store.registered"))
	m.RecordCommitted(" participants.store.registered ")
	m.RecordCommitted("")
	if got := testutil.ToFloat64(m.committed.WithLabelValues("participants.store.registered")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
	if got := testutil.ToFloat64(m.committed.WithLabelValues("unknown")); got < 1 {
		t.Fatalf("expected unknown bucket to be counted, got %v", got)
	}

	failures := testutil.ToFloat64(m.journalFailure)
	m.RecordJournalFailure()
	if got := testutil.ToFloat64(m.journalFailure); got != failures+1 {
		t.Fatalf("expected %v journal failures, got %v", failures+1, got)
	}

	var nilMetrics *EventMetrics
	nilMetrics.RecordCommitted("x")
	nilMetrics.RecordJournalFailure()
}
