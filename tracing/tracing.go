// Package tracing wraps OpenTelemetry so frames and systems can be traced
// without the rest of the module importing the SDK directly.
package tracing

import (
	"context"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/Swind/go-frame-scheduler/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Swind/go-frame-scheduler"

// Init configures OpenTelemetry with the stdout exporter. If outputFile is
// empty the exporter writes to os.Stdout. The first successful call wins.
func Init(serviceName, serviceVersion, outputFile string) error {
	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		w = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}
	return installProvider(serviceName, serviceVersion, exporter)
}

// InitWithExporter configures OpenTelemetry using the supplied SpanExporter.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	return installProvider(serviceName, serviceVersion, exporter)
}

var (
	providerOnce sync.Once
	providerErr  error
)

func installProvider(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}

	providerOnce.Do(func() {
		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				attribute.String("service.name", serviceName),
				attribute.String("service.version", serviceVersion),
			),
		)
		if err != nil {
			providerErr = err
			return
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
	})

	return providerErr
}

// SpanTracer implements core.Tracer on top of an OpenTelemetry TracerProvider.
type SpanTracer struct {
	tracer trace.Tracer
}

var _ core.Tracer = (*SpanTracer)(nil)

// NewSpanTracer uses the global provider installed by Init.
func NewSpanTracer() *SpanTracer {
	return NewSpanTracerWithProvider(otel.GetTracerProvider())
}

// NewSpanTracerWithProvider uses provider, which is handy in tests.
func NewSpanTracerWithProvider(provider trace.TracerProvider) *SpanTracer {
	return &SpanTracer{tracer: provider.Tracer(instrumentationName)}
}

// StartFrame opens the span covering one Run call.
func (t *SpanTracer) StartFrame(ctx context.Context, frame core.FrameInfo) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, "frame.run", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.Int64("frame.number", int64(frame.Number)),
		attribute.String("frame.id", frame.ID),
	)
	return ctx, endFunc(span)
}

// StartSystem opens a child span for one system run.
func (t *SpanTracer) StartSystem(ctx context.Context, system string, layer core.Layer, workerID int) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, "system "+system, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("system.name", system),
		attribute.String("system.layer", layer.String()),
		attribute.String("worker.id", strconv.Itoa(workerID)),
	)
	return ctx, endFunc(span)
}

func endFunc(span trace.Span) func(error) {
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
