package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	CarrierErrors     *prometheus.CounterVec
	TokenAcquisitions *prometheus.CounterVec
	IdempotentReplays *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg. A nil reg uses
// the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carrierbridge_requests_total",
				Help: "Total number of requests by operation, carrier, and status",
			},
			[]string{"operation", "carrier", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carrierbridge_request_duration_seconds",
				Help:    "Request duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carrierbridge_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error kind",
			},
			[]string{"carrier", "error_type"},
		),
		TokenAcquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carrierbridge_token_acquisitions_total",
				Help: "Bearer token acquisition attempts by carrier and outcome",
			},
			[]string{"carrier", "status"},
		),
		IdempotentReplays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carrierbridge_idempotent_replays_total",
				Help: "Shipment requests answered from the idempotency store",
			},
			[]string{"carrier"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, carrier, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, carrier, status).Inc()
	m.RequestDuration.WithLabelValues(operation, carrier).Observe(duration)
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(carrier, errorType string) {
	m.CarrierErrors.WithLabelValues(carrier, errorType).Inc()
}

// TokenObserver returns a callback for shipper.TokenManager.OnAcquire.
func (m *Metrics) TokenObserver(carrier string) func(error) {
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		m.TokenAcquisitions.WithLabelValues(carrier, status).Inc()
	}
}

// RecordReplay records a shipment answered from the idempotency store.
func (m *Metrics) RecordReplay(carrier string) {
	m.IdempotentReplays.WithLabelValues(carrier).Inc()
}
