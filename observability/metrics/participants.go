package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ParticipantsMetrics tracks registry operations and ledger progress.
type ParticipantsMetrics struct {
	operations  *prometheus.CounterVec
	txs         *prometheus.CounterVec
	height      prometheus.Gauge
	subscribers prometheus.Gauge
}

var (
	participantsOnce     sync.Once
	participantsRegistry *ParticipantsMetrics
)

// Participants returns the lazily registered registry metrics.
func Participants() *ParticipantsMetrics {
	participantsOnce.Do(func() {
		participantsRegistry = &ParticipantsMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "foodcourt",
				Subsystem: "participants",
				Name:      "ops_total",
				Help:      "Registry operations segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			txs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "foodcourt",
				Subsystem: "ledger",
				Name:      "transactions_total",
				Help:      "Submitted transactions segmented by type and outcome.",
			}, []string{"type", "outcome"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "foodcourt",
				Subsystem: "ledger",
				Name:      "height",
				Help:      "Number of committed transactions.",
			}),
			subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "foodcourt",
				Subsystem: "ledger",
				Name:      "event_subscribers",
				Help:      "Active websocket event subscribers.",
			}),
		}
		prometheus.MustRegister(
			participantsRegistry.operations,
			participantsRegistry.txs,
			participantsRegistry.height,
			participantsRegistry.subscribers,
		)
	})
	return participantsRegistry
}

// ObserveOperation implements participants.Observer.
func (m *ParticipantsMetrics) ObserveOperation(op, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *ParticipantsMetrics) ObserveTransaction(txType, outcome string) {
	if m == nil {
		return
	}
	m.txs.WithLabelValues(txType, outcome).Inc()
}

func (m *ParticipantsMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

func (m *ParticipantsMetrics) AddSubscribers(delta int) {
	if m == nil {
		return
	}
	m.subscribers.Add(float64(delta))
}
