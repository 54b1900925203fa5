package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Swind/go-frame-scheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	systemDurationSeconds *prom.HistogramVec
	systemFailureTotal    *prom.CounterVec
	frameDurationSeconds  prom.Histogram
	frameSystems          prom.Gauge
	workerBusySeconds     *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "framescheduler"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.ExponentialBuckets(0.00005, 2, 16)
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "system_duration_seconds",
		Help:      "System execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"system", "layer"})
	failureVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "system_failure_total",
		Help:      "Total number of failed system runs.",
	}, []string{"system", "kind"})
	frameDuration := prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "frame_duration_seconds",
		Help:      "Wall time of one frame in seconds.",
		Buckets:   buckets,
	})
	frameSystems := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "frame_systems_executed",
		Help:      "Systems executed in the last frame.",
	})
	workerBusy := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "worker_busy_seconds_total",
		Help:      "Cumulative busy time per worker.",
	}, []string{"worker"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if failureVec, err = registerCollector(reg, failureVec); err != nil {
		return nil, err
	}
	if frameDuration, err = registerCollector(reg, frameDuration); err != nil {
		return nil, err
	}
	if frameSystems, err = registerCollector(reg, frameSystems); err != nil {
		return nil, err
	}
	if workerBusy, err = registerCollector(reg, workerBusy); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		systemDurationSeconds: durationVec,
		systemFailureTotal:    failureVec,
		frameDurationSeconds:  frameDuration,
		frameSystems:          frameSystems,
		workerBusySeconds:     workerBusy,
	}, nil
}

// RecordSystemDuration records one system run.
func (m *MetricsExporter) RecordSystemDuration(system string, layer core.Layer, duration time.Duration) {
	if m == nil {
		return
	}
	m.systemDurationSeconds.WithLabelValues(normalizeLabel(system, "unknown"), layer.String()).Observe(duration.Seconds())
}

// RecordSystemFailure records a failed system run.
func (m *MetricsExporter) RecordSystemFailure(system string, panicked bool) {
	if m == nil {
		return
	}
	kind := "error"
	if panicked {
		kind = "panic"
	}
	m.systemFailureTotal.WithLabelValues(normalizeLabel(system, "unknown"), kind).Inc()
}

// RecordFrameDuration records frame wall time.
func (m *MetricsExporter) RecordFrameDuration(duration time.Duration, systems int) {
	if m == nil {
		return
	}
	m.frameDurationSeconds.Observe(duration.Seconds())
	m.frameSystems.Set(float64(systems))
}

// RecordWorkerBusy adds busy time to a worker.
func (m *MetricsExporter) RecordWorkerBusy(workerID int, duration time.Duration) {
	if m == nil {
		return
	}
	m.workerBusySeconds.WithLabelValues(strconv.Itoa(workerID)).Add(duration.Seconds())
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
