package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// SystemResult is what a worker reports after running one system.
type SystemResult struct {
	Index     int
	StartedAt time.Time
	Elapsed   time.Duration
	Err       error
	Panicked  bool
	Stack     []byte
}

// Completion is sent by a worker on the shared outbound channel. Result is
// nil for the acknowledgement of a shutdown message.
type Completion struct {
	WorkerID int
	Result   *SystemResult
}

// job is the message a worker receives on its private inbound channel.
// A nil job asks the worker to exit.
type job struct {
	index int
	desc  *SystemDescriptor
	ctx   context.Context
	frame FrameInfo
}

type worker struct {
	id    int
	inbox chan *job
}

// WorkerPool manages a fixed set of long-lived worker goroutines.
// Each worker is fed through a private channel and reports on one shared
// completion channel, which doubles as the "a worker is free" notification.
type WorkerPool struct {
	id          string
	workers     []*worker
	completions chan Completion

	state        SharedState
	panicHandler PanicHandler
	tracer       Tracer
	logger       Logger

	wg        sync.WaitGroup
	running   bool
	runningMu sync.RWMutex
}

// NewWorkerPool creates a pool of size workers. Size is clamped to at least 1.
func NewWorkerPool(id string, size int, cfg *SchedulerConfig) *WorkerPool {
	if size < 1 {
		size = 1
	}
	c := cfg.withDefaults()
	p := &WorkerPool{
		id:           id,
		workers:      make([]*worker, size),
		completions:  make(chan Completion, size*2),
		state:        c.State,
		panicHandler: c.PanicHandler,
		tracer:       c.Tracer,
		logger:       c.Logger,
	}
	for i := range p.workers {
		p.workers[i] = &worker{id: i, inbox: make(chan *job, 1)}
	}
	return p
}

// Start starts all worker goroutines
func (p *WorkerPool) Start() {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return // Already running
	}
	p.running = true

	for _, w := range p.workers {
		p.wg.Add(1)
		go p.workerLoop(w)
	}
}

// Shutdown asks every worker to exit, waits for their acknowledgements and
// joins all goroutines. Workers must be idle; the scheduler guarantees that
// by serialising Shutdown with Run. Repeated calls are no-ops.
func (p *WorkerPool) Shutdown() {
	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		return
	}
	p.running = false
	p.runningMu.Unlock()

	for _, w := range p.workers {
		w.inbox <- nil
	}
	for acked := 0; acked < len(p.workers); {
		if c := <-p.completions; c.Result == nil {
			acked++
		}
	}
	p.wg.Wait()
}

// ID returns the ID of the pool
func (p *WorkerPool) ID() string {
	return p.id
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// IsRunning returns whether the pool is running
func (p *WorkerPool) IsRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}

// Completions is the shared outbound channel.
func (p *WorkerPool) Completions() <-chan Completion {
	return p.completions
}

// send hands a job to an idle worker. It never blocks: an idle worker's
// inbox is always empty.
func (p *WorkerPool) send(workerID int, j *job) error {
	select {
	case p.workers[workerID].inbox <- j:
		return nil
	default:
		return fmt.Errorf("worker %d is not idle", workerID)
	}
}

// workerLoop is the main loop for each worker
func (p *WorkerPool) workerLoop(w *worker) {
	defer p.wg.Done()
	p.logger.Debug("worker started", F("pool", p.id), F("worker", w.id))

	for j := range w.inbox {
		if j == nil {
			break
		}
		p.completions <- Completion{WorkerID: w.id, Result: p.execute(w.id, j)}
	}

	p.completions <- Completion{WorkerID: w.id}
	p.logger.Debug("worker stopped", F("pool", p.id), F("worker", w.id))
}

// execute runs one system to completion and captures a panic as a failed result.
func (p *WorkerPool) execute(workerID int, j *job) (res *SystemResult) {
	h := newHandle(j.desc, p.state, j.frame, workerID)
	ctx, end := p.tracer.StartSystem(j.ctx, j.desc.Name, j.desc.Layer, workerID)
	res = &SystemResult{Index: j.index, StartedAt: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			res.Panicked = true
			res.Err = &PanicError{Value: r}
			res.Stack = debug.Stack()
			p.panicHandler.HandlePanic(ctx, j.desc.Name, workerID, r, res.Stack)
		}
		res.Elapsed = time.Since(res.StartedAt)
		h.release()
		end(res.Err)
	}()

	res.Err = j.desc.Work(ctx, h)
	return res
}
