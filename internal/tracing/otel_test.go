package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type mockExporter struct {
	spans []sdktrace.ReadOnlySpan
}

func (m *mockExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	m.spans = append(m.spans, spans...)
	return nil
}

func (m *mockExporter) Shutdown(context.Context) error { return nil }

func withExporter(t *testing.T, fn func(context.Context, Config) (sdktrace.SpanExporter, error)) {
	t.Helper()
	orig := newExporterFunc
	newExporterFunc = fn
	t.Cleanup(func() {
		newExporterFunc = orig
		otel.SetTracerProvider(noop.NewTracerProvider())
	})
}

func TestInitTracer_NoEndpoint(t *testing.T) {
	called := false
	withExporter(t, func(context.Context, Config) (sdktrace.SpanExporter, error) {
		called = true
		return &mockExporter{}, nil
	})

	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "deadman"})
	require.NoError(t, err)
	assert.False(t, called)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_ExportsSpans(t *testing.T) {
	exp := &mockExporter{}
	withExporter(t, func(context.Context, Config) (sdktrace.SpanExporter, error) {
		return exp, nil
	})

	shutdown, err := InitTracer(context.Background(), Config{Endpoint: "fake:4317", Insecure: true, ServiceName: "deadman"})
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "test-span")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	require.Len(t, exp.spans, 1)
	assert.Equal(t, "test-span", exp.spans[0].Name())
}

func TestInitTracer_ExporterError(t *testing.T) {
	withExporter(t, func(context.Context, Config) (sdktrace.SpanExporter, error) {
		return nil, errors.New("boom")
	})

	_, err := InitTracer(context.Background(), Config{Endpoint: "fake:4317"})
	assert.ErrorContains(t, err, "boom")
}
