package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

// WorkerMetrics tracks inbound e-mail handling in the worker process.
type WorkerMetrics struct {
	registry *prometheus.Registry

	messageTotal    *prometheus.CounterVec
	messageDuration *prometheus.HistogramVec
	messageInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	m := &WorkerMetrics{
		registry: prometheus.NewRegistry(),
		messageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "inbound_mail_total",
			Help:      "Handled inbound e-mails by status.",
		}, []string{"service", "status"}),
		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "inbound_mail_duration_seconds",
			Help:      "Inbound e-mail handling duration in seconds by status.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"service", "status"}),
		messageInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "inbound_mail_in_flight",
			Help:        "Number of inbound e-mails being handled.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
	}

	m.registry.MustRegister(m.messageTotal, m.messageDuration, m.messageInFlight)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) Registerer() prometheus.Registerer {
	return m.registry
}

func (m *WorkerMetrics) StartMessage() {
	m.messageInFlight.Inc()
}

func (m *WorkerMetrics) FinishMessage(service string, duration time.Duration, err error) {
	m.messageInFlight.Dec()

	status := messageStatus(err)
	m.messageTotal.WithLabelValues(service, status).Inc()
	m.messageDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

// messageStatus separates bad mail from outages so alerts can ignore the former.
func messageStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsKind(err, domain.ErrRejected), domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrNotFound):
		return "dropped"
	case domain.IsKind(err, domain.ErrTemporary):
		return "temporary"
	default:
		return "error"
	}
}
