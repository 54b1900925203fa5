package framescheduler

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Swind/go-frame-scheduler/core"
	promexport "github.com/Swind/go-frame-scheduler/observability/prometheus"
	"github.com/Swind/go-frame-scheduler/tracing"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Option customises a Runtime built by New.
type Option func(*options)

type options struct {
	state        core.SharedState
	logger       core.Logger
	logOutput    io.Writer
	panicHandler core.PanicHandler
	registerer   prom.Registerer
	tracer       core.Tracer
	name         string
}

// WithState sets the shared state every system's handle resolves against.
func WithState(state core.SharedState) Option {
	return func(o *options) { o.state = state }
}

// WithLogger overrides the logger built from Config.Logging.
func WithLogger(logger core.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLogOutput redirects the configured logger. Defaults to os.Stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithPanicHandler overrides the logging panic handler.
func WithPanicHandler(h core.PanicHandler) Option {
	return func(o *options) { o.panicHandler = h }
}

// WithRegisterer registers Prometheus collectors on reg instead of the
// default registerer. It has no effect unless metrics are enabled.
func WithRegisterer(reg prom.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithTracer overrides the tracer built from Config.Tracing.
func WithTracer(t core.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithName labels the runtime in snapshot metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Runtime is a Scheduler wired with the logging, metrics and tracing stack
// described by a Config.
type Runtime struct {
	*core.Scheduler

	logger core.Logger
	poller *promexport.SnapshotPoller
}

// New validates cfg, builds the ambient stack and starts a scheduler over
// registry. A nil cfg uses DefaultConfig.
func New(registry *core.Registry, cfg *Config, opts ...Option) (*Runtime, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logOutput: os.Stderr, name: "default"}
	for _, opt := range opts {
		opt(&o)
	}

	sc := cfg.CoreConfig()
	sc.State = o.state

	sc.Logger = o.logger
	if sc.Logger == nil {
		sc.Logger = core.NewLogger(cfg.Logging.Level, cfg.Logging.Format, o.logOutput)
	}
	sc.PanicHandler = o.panicHandler

	sc.Tracer = o.tracer
	if sc.Tracer == nil && cfg.Tracing.Enabled {
		if err := tracing.Init(cfg.Tracing.Service, Version, cfg.Tracing.Output); err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		sc.Tracer = tracing.NewSpanTracer()
	}

	var poller *promexport.SnapshotPoller
	if cfg.Metrics.Enabled {
		exporter, err := promexport.NewMetricsExporter(cfg.Metrics.Namespace, o.registerer, promexport.ExporterOptions{})
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		sc.Metrics = exporter

		interval, _ := cfg.Metrics.interval()
		poller, err = promexport.NewSnapshotPoller(cfg.Metrics.Namespace, o.registerer, interval)
		if err != nil {
			return nil, fmt.Errorf("register snapshot metrics: %w", err)
		}
	}

	r := &Runtime{
		Scheduler: core.NewScheduler(registry, sc),
		logger:    sc.Logger,
		poller:    poller,
	}
	if poller != nil {
		poller.AddScheduler(o.name, r.Scheduler)
		poller.Start(context.Background())
	}
	r.logger.Info("runtime started",
		core.F("name", o.name),
		core.F("workers", r.WorkerCount()),
		core.F("barrier", sc.Barrier.String()),
		core.F("metrics", cfg.Metrics.Enabled),
		core.F("tracing", sc.Tracer != nil),
	)
	return r, nil
}

// Logger returns the logger the runtime and its scheduler write to.
func (r *Runtime) Logger() core.Logger { return r.logger }

// Close stops snapshot polling and shuts the scheduler down.
func (r *Runtime) Close() {
	r.poller.Stop()
	r.Shutdown()
}

func (m MetricsConfig) interval() (time.Duration, error) {
	if m.PollInterval == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(m.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("metrics.pollInterval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("metrics.pollInterval must be positive, got %s", d)
	}
	return d, nil
}

// =============================================================================
// Global Runtime Helper (Singleton)
// =============================================================================

var (
	globalRuntime *Runtime
	globalMu      sync.Mutex
)

// InitGlobalRuntime builds the process-wide runtime. Later calls are no-ops.
func InitGlobalRuntime(registry *core.Registry, cfg *Config, opts ...Option) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		return nil
	}
	r, err := New(registry, cfg, opts...)
	if err != nil {
		return err
	}
	globalRuntime = r
	return nil
}

// GetGlobalRuntime returns the global runtime.
// It panics if InitGlobalRuntime has not been called.
func GetGlobalRuntime() *Runtime {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime == nil {
		panic("global runtime not initialized. Call InitGlobalRuntime() first.")
	}
	return globalRuntime
}

// ShutdownGlobalRuntime closes the global runtime.
func ShutdownGlobalRuntime() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime != nil {
		globalRuntime.Close()
		globalRuntime = nil
	}
}
