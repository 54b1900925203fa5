package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WorkerState is the scheduler's view of one worker. CumulativeBusy only
// grows and is never reset, so load balancing works across frames.
type WorkerState struct {
	ID             int
	Busy           bool
	CumulativeBusy time.Duration
	Dispatched     uint64
}

// Scheduler runs every registered system once per frame across a worker pool,
// never letting two systems that conflict on a resource overlap.
//
// The access tracker and the per-system history belong to the scheduler and
// live for its whole lifetime. Run and Shutdown are serialised.
type Scheduler struct {
	mu sync.Mutex

	systems []SystemDescriptor
	pool    *WorkerPool
	tracker *AccessTracker
	history *systemHistory
	records *executionHistory
	cfg     SchedulerConfig

	statsMu sync.RWMutex
	workers []WorkerState

	frames        atomic.Uint64
	lastFrame     atomic.Int64
	totalFailures atomic.Uint64
	closed        atomic.Bool
}

// NewScheduler freezes registry and starts the worker pool.
func NewScheduler(registry *Registry, cfg *SchedulerConfig) *Scheduler {
	c := cfg.withDefaults()
	systems := registry.freeze()

	s := &Scheduler{
		systems: systems,
		pool:    NewWorkerPool("frame-pool", c.Workers, &c),
		tracker: NewAccessTracker(),
		history: newSystemHistory(len(systems)),
		records: newExecutionHistory(c.HistoryCapacity),
		cfg:     c,
	}
	s.workers = make([]WorkerState, s.pool.Size())
	for i := range s.workers {
		s.workers[i].ID = i
	}
	s.pool.Start()

	c.Logger.Debug("scheduler started",
		F("systems", len(systems)),
		F("workers", s.pool.Size()),
		F("barrier", c.Barrier.String()),
	)
	return s
}

// Run executes every registered system exactly once and returns when all of
// them completed. A failing system does not stop the frame; it shows up in
// the report. The error is non-nil only when the frame could not finish:
// livelock, cancellation of ctx, or a closed scheduler.
func (s *Scheduler) Run(ctx context.Context, frame any) (*FrameReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrSchedulerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.tracker.Idle() {
		return nil, ErrTrackerBusy
	}

	info := FrameInfo{Number: s.frames.Add(1), ID: uuid.NewString(), Value: frame}
	ctx, end := s.cfg.Tracer.StartFrame(ctx, info)

	f := newFrameRun(s, ctx, info)
	s.cfg.Logger.Debug("frame started", F("frame", info.Number), F("id", info.ID))

	err := f.run()
	report := f.report
	report.Duration = time.Since(report.StartedAt)
	s.lastFrame.Store(int64(report.Duration))
	s.cfg.Metrics.RecordFrameDuration(report.Duration, report.Executed)

	if err != nil {
		end(err)
	} else {
		end(report.Err())
	}
	s.cfg.Logger.Debug("frame finished",
		F("frame", info.Number),
		F("duration", report.Duration),
		F("executed", report.Executed),
		F("failures", len(report.Failures)),
	)
	return report, err
}

// Shutdown stops every worker and joins them. It waits for a Run in progress.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Swap(true) {
		return
	}
	s.pool.Shutdown()
	s.cfg.Logger.Debug("scheduler stopped", F("frames", s.frames.Load()))
}

// WorkerCount returns the pool size.
func (s *Scheduler) WorkerCount() int { return s.pool.Size() }

// SystemDurations returns the last observed duration of every system, keyed
// by name. It is advisory and has no effect on scheduling.
func (s *Scheduler) SystemDurations() map[string]time.Duration {
	s.history.mu.RLock()
	defer s.history.mu.RUnlock()
	out := make(map[string]time.Duration, len(s.systems))
	for i := range s.systems {
		out[s.systems[i].Name] = s.history.lastDuration[i]
	}
	return out
}

// PreferredWorker returns the worker a pinned system is bound to.
func (s *Scheduler) PreferredWorker(name string) (int, bool) {
	s.history.mu.RLock()
	defer s.history.mu.RUnlock()
	for i := range s.systems {
		if s.systems[i].Name == name {
			w := s.history.preferredWorker[i]
			return w, w >= 0
		}
	}
	return -1, false
}

// RecentExecutions returns up to limit execution records, newest first.
func (s *Scheduler) RecentExecutions(limit int) []SystemExecutionRecord {
	return s.records.Recent(limit)
}

// Stats returns a snapshot of workers and systems.
func (s *Scheduler) Stats() SchedulerStats {
	stats := SchedulerStats{
		Frames:        s.frames.Load(),
		LastFrame:     time.Duration(s.lastFrame.Load()),
		Barrier:       s.cfg.Barrier,
		Running:       !s.closed.Load(),
		TotalFailures: s.totalFailures.Load(),
	}

	s.statsMu.RLock()
	stats.Workers = make([]WorkerStats, len(s.workers))
	for i, w := range s.workers {
		stats.Workers[i] = WorkerStats(w)
	}
	s.statsMu.RUnlock()

	s.history.mu.RLock()
	stats.Systems = make([]SystemStats, len(s.systems))
	for i := range s.systems {
		stats.Systems[i] = SystemStats{
			Name:            s.systems[i].Name,
			Layer:           s.systems[i].Layer,
			LastDuration:    s.history.lastDuration[i],
			PreferredWorker: s.history.preferredWorker[i],
			Runs:            s.history.runs[i],
			Failures:        s.history.failures[i],
		}
	}
	s.history.mu.RUnlock()
	return stats
}

// =============================================================================
// frameRun: the per-frame state
// =============================================================================

type frameRun struct {
	s      *Scheduler
	ctx    context.Context
	info   FrameInfo
	report *FrameReport

	left            []int
	inFlight        int
	inFlightByLayer map[Layer]int
	cancelled       bool
}

func newFrameRun(s *Scheduler, ctx context.Context, info FrameInfo) *frameRun {
	left := make([]int, len(s.systems))
	for i := range left {
		left[i] = i
	}
	return &frameRun{
		s:               s,
		ctx:             ctx,
		info:            info,
		report:          &FrameReport{Frame: info, StartedAt: time.Now()},
		left:            left,
		inFlightByLayer: make(map[Layer]int),
	}
}

func (f *frameRun) run() error {
	waiting := false
	for len(f.left) > 0 || f.inFlight > 0 {
		if waiting {
			if f.inFlight == 0 {
				return f.livelock()
			}
			f.wait()
		}
		f.drain()

		if !f.cancelled && f.ctx.Err() != nil {
			f.cancel()
		}
		if f.cancelled {
			if f.inFlight == 0 {
				break
			}
			waiting = true
			continue
		}
		waiting = f.dispatch() == 0
	}

	if f.cancelled {
		return f.ctx.Err()
	}
	return nil
}

// wait blocks until one worker reports free, or the frame is cancelled.
func (f *frameRun) wait() {
	completions := f.s.pool.Completions()
	if f.cancelled {
		f.complete(<-completions)
		return
	}
	select {
	case c := <-completions:
		f.complete(c)
	case <-f.ctx.Done():
		f.cancel()
	}
}

// drain handles every completion already queued without blocking.
func (f *frameRun) drain() {
	completions := f.s.pool.Completions()
	for {
		select {
		case c := <-completions:
			f.complete(c)
		default:
			return
		}
	}
}

func (f *frameRun) complete(c Completion) {
	if c.Result == nil {
		return
	}
	s := f.s
	res := c.Result
	idx := res.Index
	desc := &s.systems[idx]
	failed := res.Err != nil

	s.statsMu.Lock()
	w := &s.workers[c.WorkerID]
	w.Busy = false
	w.CumulativeBusy += res.Elapsed
	s.statsMu.Unlock()

	s.history.record(idx, res.Elapsed, failed)
	s.tracker.Release(desc.Reads, desc.Writes)
	if desc.PinToSingleWorker {
		s.history.pin(idx, c.WorkerID)
	}

	f.inFlight--
	f.inFlightByLayer[desc.Layer]--
	f.report.Executed++

	s.records.Add(SystemExecutionRecord{
		Frame:      f.info.Number,
		System:     desc.Name,
		Layer:      desc.Layer,
		WorkerID:   c.WorkerID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.StartedAt.Add(res.Elapsed),
		Duration:   res.Elapsed,
		Failed:     failed,
		Panicked:   res.Panicked,
	})
	s.cfg.Metrics.RecordSystemDuration(desc.Name, desc.Layer, res.Elapsed)
	s.cfg.Metrics.RecordWorkerBusy(c.WorkerID, res.Elapsed)

	if failed {
		s.totalFailures.Add(1)
		s.cfg.Metrics.RecordSystemFailure(desc.Name, res.Panicked)
		f.report.Failures = append(f.report.Failures, SystemFailure{
			System:   desc.Name,
			Layer:    desc.Layer,
			WorkerID: c.WorkerID,
			Err:      res.Err,
			Panicked: res.Panicked,
			Stack:    res.Stack,
		})
		s.cfg.Logger.Error("system failed",
			F("frame", f.info.Number),
			F("system", desc.Name),
			F("worker", c.WorkerID),
			F("panicked", res.Panicked),
			F("error", res.Err),
		)
	}
}

// dispatch matches idle workers to runnable systems of the current chunk and
// returns how many systems were started.
func (f *frameRun) dispatch() int {
	if len(f.left) == 0 {
		return 0
	}
	s := f.s
	idle := f.idleWorkers()
	if len(idle) == 0 {
		return 0
	}

	f.sortLeft()
	layer := s.systems[f.left[0]].Layer
	if s.cfg.Barrier == BarrierHard && f.lowerLayerInFlight(layer) {
		return 0
	}
	chunk := 0
	for chunk < len(f.left) && s.systems[f.left[chunk]].Layer == layer {
		chunk++
	}

	dispatched := 0
	for _, workerID := range idle {
		if chunk == 0 {
			break
		}
		pos := f.find(f.left[:chunk], workerID)
		if pos < 0 {
			continue
		}
		idx := f.left[pos]
		desc := &s.systems[idx]

		s.tracker.Acquire(desc.Reads, desc.Writes)
		err := s.pool.send(workerID, &job{index: idx, desc: desc, ctx: f.ctx, frame: f.info})
		if err != nil {
			s.tracker.Release(desc.Reads, desc.Writes)
			s.cfg.Logger.Error("dispatch failed", F("system", desc.Name), F("error", err))
			continue
		}

		f.left = append(f.left[:pos], f.left[pos+1:]...)
		chunk--
		f.inFlight++
		f.inFlightByLayer[desc.Layer]++
		dispatched++

		s.statsMu.Lock()
		s.workers[workerID].Busy = true
		s.workers[workerID].Dispatched++
		s.statsMu.Unlock()
	}
	return dispatched
}

// idleWorkers returns idle worker IDs, least cumulative busy time first.
func (f *frameRun) idleWorkers() []int {
	workers := f.s.workers
	idle := make([]int, 0, len(workers))
	for i := range workers {
		if !workers[i].Busy {
			idle = append(idle, i)
		}
	}
	sort.SliceStable(idle, func(a, b int) bool {
		return workers[idle[a]].CumulativeBusy < workers[idle[b]].CumulativeBusy
	})
	return idle
}

// sortLeft orders remaining systems by layer ascending, last duration
// descending, then registration order.
func (f *frameRun) sortLeft() {
	systems := f.s.systems
	history := f.s.history
	sort.SliceStable(f.left, func(a, b int) bool {
		ia, ib := f.left[a], f.left[b]
		if systems[ia].Layer != systems[ib].Layer {
			return systems[ia].Layer < systems[ib].Layer
		}
		if da, db := history.duration(ia), history.duration(ib); da != db {
			return da > db
		}
		return ia < ib
	})
}

func (f *frameRun) lowerLayerInFlight(layer Layer) bool {
	for l, n := range f.inFlightByLayer {
		if l < layer && n > 0 {
			return true
		}
	}
	return false
}

// find returns the position in chunk of the first system workerID may run now.
func (f *frameRun) find(chunk []int, workerID int) int {
	s := f.s
	for pos, idx := range chunk {
		if preferred := s.history.preferred(idx); preferred >= 0 && preferred != workerID {
			continue
		}
		desc := &s.systems[idx]
		if s.tracker.CanAcquire(desc.Reads, desc.Writes) {
			return pos
		}
	}
	return -1
}

func (f *frameRun) cancel() {
	f.cancelled = true
	f.skipRemaining()
	f.s.cfg.Logger.Warn("frame cancelled",
		F("frame", f.info.Number),
		F("in_flight", f.inFlight),
		F("skipped", len(f.report.Skipped)),
	)
}

func (f *frameRun) skipRemaining() {
	for _, idx := range f.left {
		f.report.Skipped = append(f.report.Skipped, f.s.systems[idx].Name)
	}
	f.left = nil
}

// livelock builds the diagnostic for a frame where nothing runs and nothing
// can be dispatched, then clears the tracker so the next frame starts clean.
func (f *frameRun) livelock() error {
	s := f.s
	err := &LivelockError{Frame: f.info.Number}
	for _, idx := range f.left {
		desc := &s.systems[idx]
		err.Remaining = append(err.Remaining, desc.Name)

		var blocked ResourceSet
		for _, id := range desc.Reads {
			if !s.tracker.CanRead(id) {
				blocked = append(blocked, id)
			}
		}
		for _, id := range desc.Writes {
			if !s.tracker.CanWrite(id) {
				blocked = append(blocked, id)
			}
		}
		if len(blocked) > 0 {
			err.Conflicts = append(err.Conflicts, Conflict{System: desc.Name, Resources: NewResourceSet(blocked...)})
		}
	}
	f.skipRemaining()
	s.tracker.Reset()
	s.cfg.Logger.Error("frame livelocked", F("frame", f.info.Number), F("error", err.Error()))
	return fmt.Errorf("run frame %d: %w", f.info.Number, err)
}
