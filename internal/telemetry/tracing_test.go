package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupTracingDisabled(t *testing.T) {
	for _, exporter := range []string{"", "none", " NONE "} {
		shutdown, err := SetupTracing(context.Background(), TraceConfig{Exporter: exporter}, nil)
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	}
}

func TestSetupTracingRejectsUnknownExporter(t *testing.T) {
	_, err := SetupTracing(context.Background(), TraceConfig{Exporter: "zipkin"}, nil)
	assert.ErrorContains(t, err, "unsupported trace exporter")
}

func TestSetupTracingOTLPRequiresEndpoint(t *testing.T) {
	_, err := SetupTracing(context.Background(), TraceConfig{Exporter: "otlp"}, nil)
	assert.ErrorContains(t, err, "requires endpoint")
}

func TestSetupTracingStdoutWritesSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var buf bytes.Buffer
	shutdown, err := SetupTracing(context.Background(), TraceConfig{Exporter: "stdout", Writer: &buf}, nil)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "logo.test")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "logo.test")
	assert.Contains(t, buf.String(), "logoprep")
}

func TestSetupTracingStdoutUsesServiceName(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var buf bytes.Buffer
	shutdown, err := SetupTracing(context.Background(), TraceConfig{
		ServiceName: "brand-refresh",
		Exporter:    "STDOUT",
		Writer:      &buf,
	}, nil)
	require.NoError(t, err, "resource must build with the SDK's own schema")

	_, span := otel.Tracer("test").Start(context.Background(), "pipeline.process")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "brand-refresh")
	assert.Contains(t, buf.String(), "telemetry.sdk.language")
}
