package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "liftlog/service"

// workoutMetrics are the counters emitted by the session engine.
// With no meter provider configured they are no-ops.
type workoutMetrics struct {
	setsLogged     metric.Int64Counter
	setLogFailures metric.Int64Counter
	historyFetches metric.Int64Counter
	completions    metric.Int64Counter
	outboxReplayed metric.Int64Counter
}

func newWorkoutMetrics() *workoutMetrics {
	meter := otel.Meter(meterName)
	m := &workoutMetrics{}
	// instrument creation only fails on invalid names
	m.setsLogged, _ = meter.Int64Counter("liftlog.sets.logged",
		metric.WithDescription("Set log submissions that reached the backend"))
	m.setLogFailures, _ = meter.Int64Counter("liftlog.sets.failed",
		metric.WithDescription("Set log submissions that failed"))
	m.historyFetches, _ = meter.Int64Counter("liftlog.history.fetches",
		metric.WithDescription("Exercise history requests by result"))
	m.completions, _ = meter.Int64Counter("liftlog.workouts.completed",
		metric.WithDescription("Completed workouts by submission result"))
	m.outboxReplayed, _ = meter.Int64Counter("liftlog.outbox.replayed",
		metric.WithDescription("Outbox entries replayed by result"))
	return m
}

func (m *workoutMetrics) add(ctx context.Context, c metric.Int64Counter, result string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
