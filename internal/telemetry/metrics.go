package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "fittrack"

// DomainMetrics are the business counters exported through the global meter provider.
// A nil *DomainMetrics records nothing.
type DomainMetrics struct {
	completions  metric.Int64Counter
	unlocks      metric.Int64Counter
	stepFailures metric.Int64Counter
}

// NewDomainMetrics registers the counters. With telemetry disabled the global
// provider is a no-op and so are the counters.
func NewDomainMetrics() (*DomainMetrics, error) {
	meter := otel.Meter(meterName)

	completions, err := meter.Int64Counter("fittrack.completions",
		metric.WithDescription("Workout completions recorded"))
	if err != nil {
		return nil, err
	}
	unlocks, err := meter.Int64Counter("fittrack.achievements.unlocked",
		metric.WithDescription("Achievements unlocked"))
	if err != nil {
		return nil, err
	}
	stepFailures, err := meter.Int64Counter("fittrack.pipeline.step_failures",
		metric.WithDescription("Advisory completion steps that failed"))
	if err != nil {
		return nil, err
	}

	return &DomainMetrics{
		completions:  completions,
		unlocks:      unlocks,
		stepFailures: stepFailures,
	}, nil
}

func (m *DomainMetrics) CompletionRecorded(ctx context.Context, source string, replayed bool) {
	if m == nil {
		return
	}
	m.completions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("replayed", replayed),
	))
}

func (m *DomainMetrics) AchievementsUnlocked(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.unlocks.Add(ctx, int64(n))
}

func (m *DomainMetrics) StepFailed(ctx context.Context, step string) {
	if m == nil {
		return
	}
	m.stepFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
}
