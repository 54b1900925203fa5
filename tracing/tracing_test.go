package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/Swind/go-frame-scheduler/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (*SpanTracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewSpanTracerWithProvider(provider), recorder
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestSpanTracer_FrameAndSystem(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	ctx, endFrame := tracer.StartFrame(context.Background(), core.FrameInfo{Number: 3, ID: "abc"})
	_, endSystem := tracer.StartSystem(ctx, "physics", core.LayerPre, 1)
	endSystem(errors.New("boom"))
	endFrame(nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	system, frame := spans[0], spans[1]

	assert.Equal(t, "frame.run", frame.Name())
	assert.Equal(t, codes.Ok, frame.Status().Code)
	v, ok := attr(frame, "frame.number")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())

	assert.Equal(t, "system physics", system.Name())
	assert.Equal(t, frame.SpanContext().SpanID(), system.Parent().SpanID())
	assert.Equal(t, codes.Error, system.Status().Code)
	v, ok = attr(system, "system.layer")
	require.True(t, ok)
	assert.Equal(t, "pre", v.AsString())
	require.Len(t, system.Events(), 1, "the error is recorded as an event")
}

func TestSpanTracer_WithScheduler(t *testing.T) {
	tracer, recorder := newRecordingTracer()

	reg := core.NewRegistry()
	for _, name := range []string{"a", "b"} {
		require.NoError(t, reg.Register(name, core.LayerMain, nil, nil, false,
			func(ctx context.Context, h *core.Handle) error { return nil }))
	}
	s := core.NewScheduler(reg, &core.SchedulerConfig{Workers: 2, Tracer: tracer})
	defer s.Shutdown()

	_, err := s.Run(context.Background(), nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	var frameID string
	children := 0
	for _, sp := range spans {
		if sp.Name() == "frame.run" {
			frameID = sp.SpanContext().SpanID().String()
		}
	}
	for _, sp := range spans {
		if sp.Name() != "frame.run" && sp.Parent().SpanID().String() == frameID {
			children++
		}
	}
	assert.Equal(t, 2, children)
}
