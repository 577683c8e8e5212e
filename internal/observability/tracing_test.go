package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_BadExporter(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, "zipkin")
	assert.NoError(t, shutdown(context.Background()))

	_, err = InitTracing(TracingConfig{Enabled: true, Exporter: "otlp"})
	assert.ErrorContains(t, err, "OTLP_ENDPOINT")
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestEndSpan_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() { Tracer = prev })

	_, span := StartSpan(context.Background(), "ReactionService", "Toggle")
	EndSpan(span, errors.New("row locked"))
	_, span = StartSpan(context.Background(), "ReactionService", "Toggle")
	EndSpan(span, nil)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ReactionService.Toggle", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "row locked", spans[0].Status().Description)
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}
