package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/carrierbridge/internal/telemetry"
)

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "error", "bogus"} {
		logger, err := telemetry.NewLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)

	m.RecordRequest("FindRates", "fedex", "success", 0.2)
	m.RecordRequest("FindRates", "fedex", "success", 0.3)
	m.RecordError("fedex", "validation")
	m.RecordReplay("ontrac")

	observe := m.TokenObserver("dhl")
	observe(nil)
	observe(errors.New("bad login"))

	totals := gather(t, reg)
	assert.Equal(t, 2.0, totals["carrierbridge_requests_total"])
	assert.Equal(t, 1.0, totals["carrierbridge_carrier_errors_total"])
	assert.Equal(t, 2.0, totals["carrierbridge_token_acquisitions_total"])
	assert.Equal(t, 1.0, totals["carrierbridge_idempotent_replays_total"])
	assert.Equal(t, 2.0, totals["carrierbridge_request_duration_seconds"])
}

// gather sums counters, and histogram sample counts, per metric family.
func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	totals := make(map[string]float64, len(families))
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				totals[f.GetName()] += c.GetValue()
			}
			if h := m.GetHistogram(); h != nil {
				totals[f.GetName()] += float64(h.GetSampleCount())
			}
		}
	}
	return totals
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.NewMetrics(prometheus.NewRegistry())
		telemetry.NewMetrics(prometheus.NewRegistry())
	})
}

func TestInitTracer(t *testing.T) {
	tracer, shutdown, err := telemetry.InitTracer(context.Background(), "http://127.0.0.1:4318", "carrierbridge-test", "0.0.0")
	require.NoError(t, err)
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "test")
	span.End()
	assert.True(t, span.SpanContext().IsValid())

	// Nothing listens on the endpoint; shutdown only has to return.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}
