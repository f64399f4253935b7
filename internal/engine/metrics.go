package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "trygglink/engine"

type metrics struct {
	providerCalls    metric.Int64Counter
	providerDuration metric.Float64Histogram
	scans            metric.Int64Counter
}

// newMetrics registers the engine instruments. Registration errors leave a
// no-op instrument in place.
func newMetrics(meter metric.Meter) *metrics {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	calls, _ := meter.Int64Counter("trygglink.provider.calls",
		metric.WithDescription("Provider checks by outcome"))
	duration, _ := meter.Float64Histogram("trygglink.provider.duration_ms",
		metric.WithDescription("Provider check latency"), metric.WithUnit("ms"))
	scans, _ := meter.Int64Counter("trygglink.scans",
		metric.WithDescription("Completed scans by type and verdict"))
	return &metrics{providerCalls: calls, providerDuration: duration, scans: scans}
}

func (m *metrics) recordProvider(ctx context.Context, name, outcome string, took time.Duration) {
	if m.providerCalls != nil {
		m.providerCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", name),
			attribute.String("outcome", outcome),
		))
	}
	if m.providerDuration != nil {
		m.providerDuration.Record(ctx, float64(took.Milliseconds()), metric.WithAttributes(
			attribute.String("provider", name),
		))
	}
}

func (m *metrics) recordScan(ctx context.Context, scanType, verdict string) {
	if m.scans == nil {
		return
	}
	m.scans.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scan_type", scanType),
		attribute.String("verdict", verdict),
	))
}
