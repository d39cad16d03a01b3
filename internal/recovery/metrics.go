package recovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports recovery counters. Construct with a dedicated Registerer;
// a nil *Metrics disables instrumentation.
type Metrics struct {
	ModelRoundTrips *prometheus.CounterVec
	CircuitOpen     *prometheus.CounterVec
	Outcomes        *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ModelRoundTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recovery_model_roundtrips_total",
				Help: "Diagnostic model round-trips, by operation and result",
			},
			[]string{"operation", "result"},
		),
		CircuitOpen: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recovery_circuit_open_total",
				Help: "Recovery attempts rejected by an open circuit breaker",
			},
			[]string{"operation"},
		),
		Outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recovery_outcomes_total",
				Help: "Real-world outcomes of corrected actions, by category and result",
			},
			[]string{"category", "result"},
		),
	}
}

func (m *Metrics) roundTrip(operation, result string) {
	if m == nil {
		return
	}
	m.ModelRoundTrips.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) circuitOpen(operation string) {
	if m == nil {
		return
	}
	m.CircuitOpen.WithLabelValues(operation).Inc()
}

func (m *Metrics) outcome(cat Category, success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.Outcomes.WithLabelValues(string(cat), result).Inc()
}
