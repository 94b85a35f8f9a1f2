package otel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer() func() {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func() {
		_ = tp.Shutdown(context.Background())
	}
}

func TestInjectTraceHeaders(t *testing.T) {
	cleanup := setupTestTracer()
	defer cleanup()

	ctx, span := otel.Tracer("test-service").Start(context.Background(), "test-operation")
	defer span.End()

	headers := InjectTraceHeaders(ctx, nil)
	assert.NotEmpty(t, headers["traceparent"])
}

func TestWithTraceHeaders(t *testing.T) {
	cleanup := setupTestTracer()
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Received-Traceparent", r.Header.Get("traceparent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, span := otel.Tracer("test-service").Start(context.Background(), "test-operation")
	defer span.End()

	client := resty.New().
		SetBaseURL(server.URL).
		OnBeforeRequest(WithTraceHeaders)

	resp, err := client.R().SetContext(ctx).Get("/test")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.NotEmpty(t, resp.Header().Get("X-Received-Traceparent"))
}

func TestStartHTTPSpan(t *testing.T) {
	cleanup := setupTestTracer()
	defer cleanup()

	spanCtx, finish := StartHTTPSpan(context.Background(), "test-service", "pipeline", "GET /auth/me/", "GET", "https://api.example.com", "/auth/me/")

	span := trace.SpanFromContext(spanCtx)
	assert.True(t, span.SpanContext().IsValid())

	finish(http.StatusOK, nil)
}

func TestStartHTTPSpanWithError(t *testing.T) {
	cleanup := setupTestTracer()
	defer cleanup()

	_, finish := StartHTTPSpan(context.Background(), "test-service", "pipeline", "GET /auth/me/", "GET", "https://api.example.com", "/auth/me/")
	assert.NotPanics(t, func() { finish(http.StatusUnauthorized, assert.AnError) })
}
