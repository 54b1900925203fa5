package prometheus

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Swind/go-frame-scheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// SchedulerSnapshotProvider provides current scheduler stats snapshots.
type SchedulerSnapshotProvider interface {
	Stats() core.SchedulerStats
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	schedulersMu sync.RWMutex
	schedulers   map[string]SchedulerSnapshotProvider

	frames             *prom.GaugeVec
	lastFrameSeconds   *prom.GaugeVec
	running            *prom.GaugeVec
	workerBusy         *prom.GaugeVec
	workerBusySeconds  *prom.GaugeVec
	workerDispatched   *prom.GaugeVec
	systemLastSeconds  *prom.GaugeVec
	systemPreferred    *prom.GaugeVec
	systemFailureTotal *prom.GaugeVec

	stateMu    sync.Mutex
	collecting bool
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if namespace == "" {
		namespace = "framescheduler"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}

	p := &SnapshotPoller{
		interval:           interval,
		schedulers:         make(map[string]SchedulerSnapshotProvider),
		frames:             gauge("scheduler_frames", "Frames run by the scheduler.", "scheduler"),
		lastFrameSeconds:   gauge("scheduler_last_frame_seconds", "Wall time of the last frame.", "scheduler"),
		running:            gauge("scheduler_running", "Scheduler running state (1=running, 0=stopped).", "scheduler"),
		workerBusy:         gauge("worker_busy", "Worker busy state (1=busy, 0=idle).", "scheduler", "worker"),
		workerBusySeconds:  gauge("worker_cumulative_busy_seconds", "Cumulative busy time per worker.", "scheduler", "worker"),
		workerDispatched:   gauge("worker_dispatched", "Systems dispatched per worker.", "scheduler", "worker"),
		systemLastSeconds:  gauge("system_last_duration_seconds", "Last observed duration per system.", "scheduler", "system"),
		systemPreferred:    gauge("system_preferred_worker", "Preferred worker of pinned systems (-1 when unset).", "scheduler", "system"),
		systemFailureTotal: gauge("system_failures", "Failure count snapshot per system.", "scheduler", "system"),
	}

	var err error
	for _, g := range []**prom.GaugeVec{
		&p.frames, &p.lastFrameSeconds, &p.running,
		&p.workerBusy, &p.workerBusySeconds, &p.workerDispatched,
		&p.systemLastSeconds, &p.systemPreferred, &p.systemFailureTotal,
	} {
		if *g, err = registerCollector(reg, *g); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AddScheduler adds or replaces a scheduler snapshot provider by name.
func (p *SnapshotPoller) AddScheduler(name string, provider SchedulerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "scheduler")
	p.schedulersMu.Lock()
	p.schedulers[name] = provider
	p.schedulersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.collecting {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.collecting = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.collecting {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.collecting = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.schedulersMu.RLock()
	defer p.schedulersMu.RUnlock()

	for name, provider := range p.schedulers {
		stats := provider.Stats()
		p.frames.WithLabelValues(name).Set(float64(stats.Frames))
		p.lastFrameSeconds.WithLabelValues(name).Set(stats.LastFrame.Seconds())
		p.running.WithLabelValues(name).Set(boolGauge(stats.Running))

		for _, w := range stats.Workers {
			worker := strconv.Itoa(w.ID)
			p.workerBusy.WithLabelValues(name, worker).Set(boolGauge(w.Busy))
			p.workerBusySeconds.WithLabelValues(name, worker).Set(w.CumulativeBusy.Seconds())
			p.workerDispatched.WithLabelValues(name, worker).Set(float64(w.Dispatched))
		}
		for _, s := range stats.Systems {
			p.systemLastSeconds.WithLabelValues(name, s.Name).Set(s.LastDuration.Seconds())
			p.systemPreferred.WithLabelValues(name, s.Name).Set(float64(s.PreferredWorker))
			p.systemFailureTotal.WithLabelValues(name, s.Name).Set(float64(s.Failures))
		}
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
