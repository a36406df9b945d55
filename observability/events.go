package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type EventMetrics struct {
	committed      *prometheus.CounterVec
	journalFailure prometheus.Counter
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *EventMetrics
)

// Events returns the metrics registry tracking committed registry events.
func Events() *EventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &EventMetrics{
			committed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "foodcourt",
				Subsystem: "events",
				Name:      "committed_total",
				Help:      "Count of committed events segmented by type.",
			}, []string{"type"}),
			journalFailure: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "foodcourt",
				Subsystem: "events",
				Name:      "journal_failures_total",
				Help:      "Count of committed transactions whose events could not be journaled.",
			}),
		}
		prometheus.MustRegister(eventRegistry.committed, eventRegistry.journalFailure)
	})
	return eventRegistry
}

// RecordCommitted increments the committed counter for the supplied event type.
func (m *EventMetrics) RecordCommitted(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(eventType)
	if normalized == "" {
		normalized = "unknown"
	}
	m.committed.WithLabelValues(normalized).Inc()
}

func (m *EventMetrics) RecordJournalFailure() {
	if m == nil {
		return
	}
	m.journalFailure.Inc()
}
