// metrics.go exposes client activity as Prometheus counters.

package raven

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Send outcomes recorded in Metrics.SendsTotal.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeWithheld = "withheld"
)

// Metrics holds the client's Prometheus counters. A nil *Metrics records
// nothing.
type Metrics struct {
	EventsCaptured  *prometheus.CounterVec
	SendsTotal      *prometheus.CounterVec
	CrashesPersist  prometheus.Counter
	PersistFailures prometheus.Counter
	CrashesReplayed prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsCaptured: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "client",
			Name:      "events_captured_total",
			Help:      "Total number of events captured by level.",
		}, []string{"level"}),
		SendsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "client",
			Name:      "sends_total",
			Help:      "Total number of event deliveries by outcome.",
		}, []string{"outcome"}), // outcome: success, failure, withheld
		CrashesPersist: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "crash_store",
			Name:      "persisted_total",
			Help:      "Total number of crashes written to the crash directory.",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "crash_store",
			Name:      "persist_failures_total",
			Help:      "Total number of crashes that could not be written.",
		}),
		CrashesReplayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "crash_store",
			Name:      "replayed_total",
			Help:      "Total number of persisted crashes handed to replay.",
		}),
	}
}

func (m *Metrics) eventCaptured(level Level) {
	if m != nil {
		m.EventsCaptured.WithLabelValues(string(level)).Inc()
	}
}

func (m *Metrics) send(outcome string) {
	if m != nil {
		m.SendsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) crashPersisted() {
	if m != nil {
		m.CrashesPersist.Inc()
	}
}

func (m *Metrics) persistFailed() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) crashReplayed() {
	if m != nil {
		m.CrashesReplayed.Inc()
	}
}
