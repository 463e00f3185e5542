package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the coordinator's Prometheus counters.
type Metrics struct {
	registry               *prometheus.Registry
	framesPushed           prometheus.Counter
	detectionsConfirmed    prometheus.Counter
	classificationFailures prometheus.Counter
	ledgerErrors           prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	framesPushed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "penguard_frames_pushed_total",
		Help: "Total live frames pushed by the edge node",
	})
	detectionsConfirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "penguard_detections_confirmed_total",
		Help: "Total classifications matching the detection taxonomy",
	})
	classificationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "penguard_classification_failures_total",
		Help: "Total classification requests that failed after retries",
	})
	ledgerErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "penguard_ledger_errors_total",
		Help: "Total ledger append/update failures",
	})

	registry.MustRegister(
		framesPushed,
		detectionsConfirmed,
		classificationFailures,
		ledgerErrors,
	)

	return &Metrics{
		registry:               registry,
		framesPushed:           framesPushed,
		detectionsConfirmed:    detectionsConfirmed,
		classificationFailures: classificationFailures,
		ledgerErrors:           ledgerErrors,
	}
}

func (m *Metrics) IncFramesPushed()           { m.framesPushed.Inc() }
func (m *Metrics) IncDetectionsConfirmed()    { m.detectionsConfirmed.Inc() }
func (m *Metrics) IncClassificationFailures() { m.classificationFailures.Inc() }
func (m *Metrics) IncLedgerErrors()           { m.ledgerErrors.Inc() }

// Handler serves the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
