package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-frame-scheduler/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type schedulerStub struct {
	stats core.SchedulerStats
}

func (s schedulerStub) Stats() core.SchedulerStats { return s.stats }

func TestSnapshotPoller_CollectsSchedulerStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("framescheduler", reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddScheduler("game", schedulerStub{stats: core.SchedulerStats{
		Frames:    42,
		LastFrame: 500 * time.Millisecond,
		Running:   true,
		Workers: []core.WorkerStats{
			{ID: 0, Busy: true, CumulativeBusy: 3 * time.Second, Dispatched: 9},
		},
		Systems: []core.SystemStats{
			{Name: "render", LastDuration: 250 * time.Millisecond, PreferredWorker: 0, Failures: 2},
		},
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		return testutil.ToFloat64(poller.frames.WithLabelValues("game")) == 42
	})

	if got := testutil.ToFloat64(poller.running.WithLabelValues("game")); got != 1 {
		t.Fatalf("running gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.workerBusySeconds.WithLabelValues("game", "0")); got != 3 {
		t.Fatalf("worker busy seconds = %v, want 3", got)
	}
	if got := testutil.ToFloat64(poller.workerDispatched.WithLabelValues("game", "0")); got != 9 {
		t.Fatalf("worker dispatched = %v, want 9", got)
	}
	if got := testutil.ToFloat64(poller.systemLastSeconds.WithLabelValues("game", "render")); got != 0.25 {
		t.Fatalf("system last duration = %v, want 0.25", got)
	}
	if got := testutil.ToFloat64(poller.systemFailureTotal.WithLabelValues("game", "render")); got != 2 {
		t.Fatalf("system failures = %v, want 2", got)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("", reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func TestSnapshotPoller_WithRealScheduler(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller("framescheduler", reg, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	registry := core.NewRegistry()
	if err := registry.Register("tick", core.LayerMain, nil, nil, false,
		func(ctx context.Context, h *core.Handle) error { return nil }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	sched := core.NewScheduler(registry, &core.SchedulerConfig{Workers: 2})
	defer sched.Shutdown()

	for range 3 {
		if _, err := sched.Run(context.Background(), nil); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	}

	poller.AddScheduler("real", sched)
	poller.Start(context.Background())
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		return testutil.ToFloat64(poller.frames.WithLabelValues("real")) == 3
	})
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
