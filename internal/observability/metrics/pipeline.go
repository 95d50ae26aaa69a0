package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

var breakerStates = []string{"closed", "half-open", "open"}

// PipelineMetrics records classification, alias and dispatch outcomes.
type PipelineMetrics struct {
	service string

	classificationTotal *prometheus.CounterVec
	rejectedTotal       *prometheus.CounterVec
	aliasTotal          *prometheus.CounterVec
	aliasCollisions     *prometheus.CounterVec
	dispatchTotal       *prometheus.CounterVec
	breakerState        *prometheus.GaugeVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	classificationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "classification_total",
			Help:      "Document classification attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_rejected_total",
			Help:      "Documents refused by the acceptance policy by classified type.",
		},
		[]string{"service", "document_type"},
	)
	aliasTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alias",
			Name:      "allocations_total",
			Help:      "Inbound alias requests by result.",
		},
		[]string{"service", "result"},
	)
	aliasCollisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alias",
			Name:      "collisions_total",
			Help:      "Unique-constraint collisions hit while allocating aliases.",
		},
		[]string{"service"},
	)
	dispatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "total",
			Help:      "Send-to-accountant attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "1 for the current circuit breaker state of each operation.",
		},
		[]string{"service", "operation", "state"},
	)

	registerer.MustRegister(classificationTotal, rejectedTotal, aliasTotal, aliasCollisions, dispatchTotal, breakerState)

	return &PipelineMetrics{
		service:             service,
		classificationTotal: classificationTotal,
		rejectedTotal:       rejectedTotal,
		aliasTotal:          aliasTotal,
		aliasCollisions:     aliasCollisions,
		dispatchTotal:       dispatchTotal,
		breakerState:        breakerState,
	}
}

func (m *PipelineMetrics) RecordClassification(outcome string) {
	m.classificationTotal.WithLabelValues(m.service, labelOrUnknown(outcome)).Inc()
}

func (m *PipelineMetrics) RecordRejection(documentType domain.DocumentType) {
	m.rejectedTotal.WithLabelValues(m.service, labelOrUnknown(string(documentType))).Inc()
}

func (m *PipelineMetrics) RecordAliasAllocation(result string, collisions int) {
	m.aliasTotal.WithLabelValues(m.service, labelOrUnknown(result)).Inc()
	if collisions > 0 {
		m.aliasCollisions.WithLabelValues(m.service).Add(float64(collisions))
	}
}

func (m *PipelineMetrics) RecordDispatch(outcome string) {
	m.dispatchTotal.WithLabelValues(m.service, labelOrUnknown(outcome)).Inc()
}

// ObserveBreaker matches resilience.StateObserver.
func (m *PipelineMetrics) ObserveBreaker(operation, _, to string) {
	for _, state := range breakerStates {
		value := 0.0
		if state == to {
			value = 1
		}
		m.breakerState.WithLabelValues(m.service, operation, state).Set(value)
	}
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
