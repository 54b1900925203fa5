package core

import "time"

// SystemExecutionRecord captures one completed system run.
type SystemExecutionRecord struct {
	Frame      uint64
	System     string
	Layer      Layer
	WorkerID   int
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Failed     bool
	Panicked   bool
}

// WorkerStats represents runtime observability state for one worker.
type WorkerStats struct {
	ID             int
	Busy           bool
	CumulativeBusy time.Duration
	Dispatched     uint64
}

// SystemStats represents runtime observability state for one system.
type SystemStats struct {
	Name            string
	Layer           Layer
	LastDuration    time.Duration
	PreferredWorker int // -1 when unpinned or not yet observed
	Runs            uint64
	Failures        uint64
}

// SchedulerStats is a point-in-time snapshot of a scheduler.
type SchedulerStats struct {
	Frames        uint64
	LastFrame     time.Duration
	Barrier       BarrierMode
	Running       bool
	Workers       []WorkerStats
	Systems       []SystemStats
	TotalFailures uint64
}
