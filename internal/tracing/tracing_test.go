package tracing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"blueway/internal/tracing"
)

func TestInitTracing_DisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	assert.False(t, tracing.Enabled())

	before := otel.GetTracerProvider()
	shutdown, err := tracing.InitTracing(context.Background(), "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()

	assert.Equal(t, before, otel.GetTracerProvider(), "provider left untouched")
	assert.NotNil(t, otel.GetTextMapPropagator())
}

func TestEnabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	assert.True(t, tracing.Enabled())
}
