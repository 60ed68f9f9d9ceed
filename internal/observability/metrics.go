package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce sync.Once

	repositoryOps metric.Int64Counter
	sessionEvents metric.Int64Counter
	csrfEvents    metric.Int64Counter
	authEvents    metric.Int64Counter
	contentEvents metric.Int64Counter
)

func initMetrics() {
	meter := otel.Meter("bubbles-cafe")
	repositoryOps, _ = meter.Int64Counter("repository_operations_total",
		metric.WithDescription("Repository operations by entity, operation and outcome"))
	sessionEvents, _ = meter.Int64Counter("session_events_total",
		metric.WithDescription("Session lifecycle events by action and outcome"))
	csrfEvents, _ = meter.Int64Counter("csrf_checks_total",
		metric.WithDescription("CSRF validation outcomes"))
	authEvents, _ = meter.Int64Counter("auth_events_total",
		metric.WithDescription("Authentication events by action and outcome"))
	contentEvents, _ = meter.Int64Counter("content_events_total",
		metric.WithDescription("Content operations by entity, action and outcome"))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	metricsOnce.Do(initMetrics)
	if repositoryOps == nil {
		return
	}
	repositoryOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordSessionEvent(ctx context.Context, action, outcome string) {
	metricsOnce.Do(initMetrics)
	if sessionEvents == nil {
		return
	}
	sessionEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordCSRFEvent(ctx context.Context, outcome string) {
	metricsOnce.Do(initMetrics)
	if csrfEvents == nil {
		return
	}
	csrfEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func RecordAuthEvent(ctx context.Context, action, outcome string) {
	metricsOnce.Do(initMetrics)
	if authEvents == nil {
		return
	}
	authEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordContentEvent(ctx context.Context, entity, action, outcome string) {
	metricsOnce.Do(initMetrics)
	if contentEvents == nil {
		return
	}
	contentEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}
