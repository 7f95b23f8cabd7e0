package telemetry

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the service
type Metrics struct {
	// Aggregation metrics
	AggregationsTotal     metric.Int64Counter
	AggregationBundles    metric.Int64Histogram
	ProviderFailuresTotal metric.Int64Counter

	// Access gate metrics
	AccessDeniedTotal metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/WailSalutem-Health-Care/fhir-gateway-service")

	// Aggregation counter
	aggregationsTotal, err := meter.Int64Counter(
		"gateway_aggregations_total",
		metric.WithDescription("Total number of record aggregation requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	// Bundles-per-aggregation histogram
	aggregationBundles, err := meter.Int64Histogram(
		"gateway_aggregation_bundles",
		metric.WithDescription("Number of provider bundles merged per aggregation"),
		metric.WithUnit("{bundle}"),
	)
	if err != nil {
		return nil, err
	}

	// Provider failure counter
	providerFailuresTotal, err := meter.Int64Counter(
		"gateway_provider_failures_total",
		metric.WithDescription("Total number of failed provider queries"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	// Access denied counter
	accessDeniedTotal, err := meter.Int64Counter(
		"gateway_access_denied_total",
		metric.WithDescription("Total number of requests denied by the access gate"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	// Auth failures counter
	authFailuresTotal, err := meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	// Permission check duration histogram
	permissionCheckDuration, err := meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	log.Println("✓ Custom metrics initialized")

	return &Metrics{
		AggregationsTotal:       aggregationsTotal,
		AggregationBundles:      aggregationBundles,
		ProviderFailuresTotal:   providerFailuresTotal,
		AccessDeniedTotal:       accessDeniedTotal,
		AuthFailuresTotal:       authFailuresTotal,
		PermissionCheckDuration: permissionCheckDuration,
	}, nil
}

// RecordAggregation records the outcome of one aggregation request
func (m *Metrics) RecordAggregation(ctx context.Context, operation string, bundles, failures int) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
	}

	m.AggregationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.AggregationBundles.Record(ctx, int64(bundles), metric.WithAttributes(attrs...))
	if failures > 0 {
		m.ProviderFailuresTotal.Add(ctx, int64(failures), metric.WithAttributes(attrs...))
	}
}

// RecordAccessDenied records a request denied by the access gate
func (m *Metrics) RecordAccessDenied(ctx context.Context) {
	m.AccessDeniedTotal.Add(ctx, 1)
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}
