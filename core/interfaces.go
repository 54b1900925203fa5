package core

import (
	"context"
	"runtime"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling system panics
// =============================================================================

// PanicHandler is called when a system panics during execution.
//
// Implementations should be thread-safe as they are called from worker goroutines.
type PanicHandler interface {
	// HandlePanic is called when a system panics.
	//
	// Parameters:
	// - ctx: The context the system was running with
	// - system: The name of the system that panicked
	// - workerID: The ID of the worker the system ran on
	// - panicInfo: The panic value recovered from the system
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, system string, workerID int, panicInfo any, stackTrace []byte)
}

// LoggingPanicHandler reports panics through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic with its stack trace.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, system string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewNoOpLogger()
	}
	logger.Error("system panicked",
		F("system", system),
		F("worker", workerID),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called from the coordinating goroutine at completion time and
// should be non-blocking and fast to avoid adding per-frame overhead.
type Metrics interface {
	// RecordSystemDuration records how long one system run took.
	RecordSystemDuration(system string, layer Layer, duration time.Duration)

	// RecordSystemFailure records a system that returned an error or panicked.
	RecordSystemFailure(system string, panicked bool)

	// RecordFrameDuration records the wall time of one Run call.
	RecordFrameDuration(duration time.Duration, systems int)

	// RecordWorkerBusy records busy time added to a worker.
	RecordWorkerBusy(workerID int, duration time.Duration)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordSystemDuration is a no-op.
func (m *NilMetrics) RecordSystemDuration(system string, layer Layer, duration time.Duration) {}

// RecordSystemFailure is a no-op.
func (m *NilMetrics) RecordSystemFailure(system string, panicked bool) {}

// RecordFrameDuration is a no-op.
func (m *NilMetrics) RecordFrameDuration(duration time.Duration, systems int) {}

// RecordWorkerBusy is a no-op.
func (m *NilMetrics) RecordWorkerBusy(workerID int, duration time.Duration) {}

// =============================================================================
// Tracer: span seam for frame and system execution
// =============================================================================

// Tracer starts spans around frames and systems. The returned function ends
// the span and records err when non-nil.
type Tracer interface {
	StartFrame(ctx context.Context, frame FrameInfo) (context.Context, func(err error))
	StartSystem(ctx context.Context, system string, layer Layer, workerID int) (context.Context, func(err error))
}

// NilTracer starts no spans.
type NilTracer struct{}

func (NilTracer) StartFrame(ctx context.Context, frame FrameInfo) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (NilTracer) StartSystem(ctx context.Context, system string, layer Layer, workerID int) (context.Context, func(error)) {
	return ctx, func(error) {}
}

// =============================================================================
// SchedulerConfig: Configuration for Scheduler
// =============================================================================

// BarrierMode selects how strongly layers separate systems.
type BarrierMode int

const (
	// BarrierSoft only orders dispatch: a higher layer is not started while a
	// lower layer still has undispatched systems, but it may start before the
	// lower layer has finished.
	BarrierSoft BarrierMode = iota

	// BarrierHard waits for every system of lower layers to complete before
	// any system of a higher layer is dispatched.
	BarrierHard
)

func (m BarrierMode) String() string {
	switch m {
	case BarrierHard:
		return "hard"
	default:
		return "soft"
	}
}

// SchedulerConfig holds configuration options for Scheduler.
// All handlers are optional; if not provided, default implementations will be used.
type SchedulerConfig struct {
	// Workers is the pool size. Zero or negative means runtime.GOMAXPROCS(0).
	Workers int

	// Barrier selects the layer barrier semantics. Defaults to BarrierSoft.
	Barrier BarrierMode

	// HistoryCapacity bounds the ring of recent execution records.
	HistoryCapacity int

	// State is passed, through per-dispatch handles, to every system.
	State SharedState

	// PanicHandler is called when a system panics. Defaults to LoggingPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Tracer wraps frames and systems in spans. Defaults to NilTracer.
	Tracer Tracer

	// Logger defaults to NoOpLogger.
	Logger Logger
}

// DefaultSchedulerConfig returns a config with default handlers.
func DefaultSchedulerConfig() *SchedulerConfig {
	logger := NewNoOpLogger()
	return &SchedulerConfig{
		Workers:         runtime.GOMAXPROCS(0),
		Barrier:         BarrierSoft,
		HistoryCapacity: defaultExecutionHistoryCapacity,
		PanicHandler:    &LoggingPanicHandler{Logger: logger},
		Metrics:         &NilMetrics{},
		Tracer:          NilTracer{},
		Logger:          logger,
	}
}

func (c *SchedulerConfig) withDefaults() SchedulerConfig {
	out := *DefaultSchedulerConfig()
	if c == nil {
		return out
	}
	if c.Workers > 0 {
		out.Workers = c.Workers
	}
	out.Barrier = c.Barrier
	if c.HistoryCapacity > 0 {
		out.HistoryCapacity = c.HistoryCapacity
	}
	out.State = c.State
	if c.Logger != nil {
		out.Logger = c.Logger
		out.PanicHandler = &LoggingPanicHandler{Logger: c.Logger}
	}
	if c.PanicHandler != nil {
		out.PanicHandler = c.PanicHandler
	}
	if c.Metrics != nil {
		out.Metrics = c.Metrics
	}
	if c.Tracer != nil {
		out.Tracer = c.Tracer
	}
	return out
}
