package circuitbreaker

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/stockpulse/lib-core/circuitbreaker"

// managerMetrics instruments breaker transitions and fast-fail rejections.
// The zero value is unusable; build it with newManagerMetrics.
type managerMetrics struct {
	transitions metric.Int64Counter
	rejections  metric.Int64Counter
}

func newManagerMetrics(provider metric.MeterProvider) managerMetrics {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}

	meter := provider.Meter(meterName)

	transitions, err := meter.Int64Counter(
		"circuitbreaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		transitions = nil
	}

	rejections, err := meter.Int64Counter(
		"circuitbreaker.rejections",
		metric.WithDescription("Requests rejected without reaching the delegate"),
	)
	if err != nil {
		rejections = nil
	}

	return managerMetrics{
		transitions: transitions,
		rejections:  rejections,
	}
}

func (m managerMetrics) recordTransition(name string, from, to State) {
	if m.transitions == nil {
		return
	}

	m.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

func (m managerMetrics) recordRejection(name string) {
	if m.rejections == nil {
		return
	}

	m.rejections.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("breaker", name),
	))
}
