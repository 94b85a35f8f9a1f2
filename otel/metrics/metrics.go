package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RenewalOutcomeSuccess = "success"
	RenewalOutcomeFailure = "failure"
	RenewalOutcomeReused  = "reused"
)

var (
	meter metric.Meter

	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	httpRetriesTotal    metric.Int64Counter

	renewalsTotal       metric.Int64Counter
	renewalDuration     metric.Float64Histogram
	renewalWaitersTotal metric.Int64Counter

	sessionTransitionsTotal metric.Int64Counter
)

// Init creates the instruments on the global meter provider. Recording
// functions are no-ops until Init succeeds.
func Init(serviceName string) error {
	meter = otel.Meter(serviceName)

	var err error

	httpRequestsTotal, err = meter.Int64Counter(
		"client_http_requests_total",
		metric.WithDescription("Total number of backend HTTP attempts"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create client_http_requests_total counter: %w", err)
	}

	httpRequestDuration, err = meter.Float64Histogram(
		"client_http_request_duration_seconds",
		metric.WithDescription("Backend HTTP attempt duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create client_http_request_duration_seconds histogram: %w", err)
	}

	httpRetriesTotal, err = meter.Int64Counter(
		"client_http_retries_total",
		metric.WithDescription("Requests re-issued after a credential renewal"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create client_http_retries_total counter: %w", err)
	}

	renewalsTotal, err = meter.Int64Counter(
		"credential_renewals_total",
		metric.WithDescription("Access token renewals by outcome"),
		metric.WithUnit("{renewal}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create credential_renewals_total counter: %w", err)
	}

	renewalDuration, err = meter.Float64Histogram(
		"credential_renewal_duration_seconds",
		metric.WithDescription("Refresh endpoint call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create credential_renewal_duration_seconds histogram: %w", err)
	}

	renewalWaitersTotal, err = meter.Int64Counter(
		"credential_renewal_waiters_total",
		metric.WithDescription("Renewal callers, split by whether they joined an in-flight renewal"),
		metric.WithUnit("{caller}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create credential_renewal_waiters_total counter: %w", err)
	}

	sessionTransitionsTotal, err = meter.Int64Counter(
		"session_transitions_total",
		metric.WithDescription("Session state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create session_transitions_total counter: %w", err)
	}

	return nil
}

// RecordHTTPRequest records one backend HTTP attempt.
func RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	)

	if httpRequestsTotal != nil {
		httpRequestsTotal.Add(ctx, 1, attrs)
	}
	if httpRequestDuration != nil {
		httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

func RecordRetry(ctx context.Context, method, route string) {
	if httpRetriesTotal != nil {
		httpRetriesTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		))
	}
}

// RecordRenewal records the outcome of one renewal flight.
func RecordRenewal(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if renewalsTotal != nil {
		renewalsTotal.Add(ctx, 1, attrs)
	}
	if renewalDuration != nil && duration > 0 {
		renewalDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

func RecordRenewalWaiter(ctx context.Context, shared bool) {
	if renewalWaitersTotal != nil {
		renewalWaitersTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("shared", shared)))
	}
}

func RecordSessionTransition(ctx context.Context, from, to, reason string) {
	if sessionTransitionsTotal != nil {
		sessionTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
			attribute.String("reason", reason),
		))
	}
}
