package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	AttrOutcome   = "outcome"
	AttrProvider  = "provider"
	AttrOperation = "operation"
	AttrMethod    = "http.method"
	AttrStatus    = "http.status_code"
	AttrAppOnly   = "app_only"
)

// Metrics holds all metric instruments for the delegated-access core.
type Metrics struct {
	// Token lifecycle
	CodeExchanged  metric.Int64Counter
	TokenRefreshed metric.Int64Counter
	TokenDeleted   metric.Int64Counter
	SweepDuration  metric.Float64Histogram

	// Resource API
	APICallsTotal   metric.Int64Counter
	APICallDuration metric.Float64Histogram

	// Storage
	StorageOperationTotal metric.Int64Counter
}

// newMetrics creates and registers all metric instruments.
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	managerMeter := inst.Meter("manager")
	graphMeter := inst.Meter("graph")
	storageMeter := inst.Meter("storage")

	var err error
	m.CodeExchanged, err = managerMeter.Int64Counter(
		"graphauth.code.exchanged",
		metric.WithDescription("Number of authorization codes exchanged for tokens"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create code.exchanged counter: %w", err)
	}

	m.TokenRefreshed, err = managerMeter.Int64Counter(
		"graphauth.token.refreshed",
		metric.WithDescription("Number of delegated tokens refreshed"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.refreshed counter: %w", err)
	}

	m.TokenDeleted, err = managerMeter.Int64Counter(
		"graphauth.token.deleted",
		metric.WithDescription("Number of delegated tokens deleted by explicit disconnect"),
		metric.WithUnit("{deletion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.deleted counter: %w", err)
	}

	m.SweepDuration, err = managerMeter.Float64Histogram(
		"graphauth.sweep.duration",
		metric.WithDescription("Maintenance sweep duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep.duration histogram: %w", err)
	}

	m.APICallsTotal, err = graphMeter.Int64Counter(
		"graphauth.api.calls.total",
		metric.WithDescription("Total number of resource API calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api.calls.total counter: %w", err)
	}

	m.APICallDuration, err = graphMeter.Float64Histogram(
		"graphauth.api.call.duration",
		metric.WithDescription("Resource API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api.call.duration histogram: %w", err)
	}

	m.StorageOperationTotal, err = storageMeter.Int64Counter(
		"graphauth.storage.operations.total",
		metric.WithDescription("Total number of token store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operations.total counter: %w", err)
	}

	return m, nil
}

// RecordCodeExchanged records one code-exchange attempt. Nil-safe.
func (i *Instrumentation) RecordCodeExchanged(ctx context.Context, outcome string) {
	if i == nil || i.metrics == nil {
		return
	}
	i.metrics.CodeExchanged.Add(ctx, 1,
		metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
}

// RecordTokenRefreshed records one refresh attempt. Nil-safe.
func (i *Instrumentation) RecordTokenRefreshed(ctx context.Context, outcome string) {
	if i == nil || i.metrics == nil {
		return
	}
	i.metrics.TokenRefreshed.Add(ctx, 1,
		metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
}

// RecordTokenDeleted records one explicit disconnect. Nil-safe.
func (i *Instrumentation) RecordTokenDeleted(ctx context.Context) {
	if i == nil || i.metrics == nil {
		return
	}
	i.metrics.TokenDeleted.Add(ctx, 1)
}

// RecordSweepDuration records the duration of one maintenance sweep.
// Nil-safe.
func (i *Instrumentation) RecordSweepDuration(ctx context.Context, duration time.Duration) {
	if i == nil || i.metrics == nil {
		return
	}
	i.metrics.SweepDuration.Record(ctx, float64(duration.Milliseconds()))
}

// RecordStorageOperation records one token store operation. Nil-safe.
func (i *Instrumentation) RecordStorageOperation(ctx context.Context, operation string, err error) {
	if i == nil || i.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	i.metrics.StorageOperationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOperation, operation),
		attribute.String(AttrOutcome, outcome),
	))
}

// RecordAPICall records one resource API call. Nil-safe.
func (i *Instrumentation) RecordAPICall(ctx context.Context, method string, statusCode int, appOnly bool, duration time.Duration) {
	if i == nil || i.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.Int(AttrStatus, statusCode),
		attribute.Bool(AttrAppOnly, appOnly),
	)
	i.metrics.APICallsTotal.Add(ctx, 1, attrs)
	i.metrics.APICallDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}
