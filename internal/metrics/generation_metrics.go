package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("generation-metrics")

// GenerationMetrics provides metrics collection for generation requests
type GenerationMetrics struct {
	startedCounter    metric.Int64Counter
	completedCounter  metric.Int64Counter
	failedCounter     metric.Int64Counter
	durationHistogram metric.Float64Histogram
	filesCounter      metric.Int64Counter
	activeGauge       metric.Int64UpDownCounter
}

// NewGenerationMetrics creates a new generation metrics collector
func NewGenerationMetrics() (*GenerationMetrics, error) {
	startedCounter, err := meter.Int64Counter(
		"site_builder.generations.started",
		metric.WithDescription("Total number of generation requests started"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	completedCounter, err := meter.Int64Counter(
		"site_builder.generations.completed",
		metric.WithDescription("Total number of generations that reached the complete event"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	failedCounter, err := meter.Int64Counter(
		"site_builder.generations.failed",
		metric.WithDescription("Total number of generations that ended with an error event"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	durationHistogram, err := meter.Float64Histogram(
		"site_builder.generation.duration",
		metric.WithDescription("Duration of a generation from request to terminal event in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	filesCounter, err := meter.Int64Counter(
		"site_builder.generation.files",
		metric.WithDescription("Total number of files streamed to clients"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	activeGauge, err := meter.Int64UpDownCounter(
		"site_builder.generations.active",
		metric.WithDescription("Number of generation streams currently open"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, err
	}

	return &GenerationMetrics{
		startedCounter:    startedCounter,
		completedCounter:  completedCounter,
		failedCounter:     failedCounter,
		durationHistogram: durationHistogram,
		filesCounter:      filesCounter,
		activeGauge:       activeGauge,
	}, nil
}

// RecordStarted records a generation request entering the pipeline
func (gm *GenerationMetrics) RecordStarted(ctx context.Context, transport string) {
	gm.startedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("transport", transport)),
	)
	gm.activeGauge.Add(ctx, 1,
		metric.WithAttributes(attribute.String("transport", transport)),
	)
}

// RecordCompleted records a generation reaching its terminal complete event
func (gm *GenerationMetrics) RecordCompleted(ctx context.Context, transport string, fileCount int, duration time.Duration) {
	gm.completedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("transport", transport),
			attribute.String("status", "completed"),
		),
	)
	gm.filesCounter.Add(ctx, int64(fileCount),
		metric.WithAttributes(attribute.String("transport", transport)),
	)
	gm.durationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("transport", transport),
			attribute.String("status", "completed"),
		),
	)
	gm.activeGauge.Add(ctx, -1,
		metric.WithAttributes(attribute.String("transport", transport)),
	)
}

// RecordFailed records a generation that ended with an error event
func (gm *GenerationMetrics) RecordFailed(ctx context.Context, transport, errorType string, duration time.Duration) {
	gm.failedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("transport", transport),
			attribute.String("status", "failed"),
			attribute.String("error.type", errorType),
		),
	)
	gm.durationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("transport", transport),
			attribute.String("status", "failed"),
		),
	)
	gm.activeGauge.Add(ctx, -1,
		metric.WithAttributes(attribute.String("transport", transport)),
	)
}
