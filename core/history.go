package core

import (
	"sync"
	"time"
)

const defaultExecutionHistoryCapacity = 256

type executionHistory struct {
	mu    sync.Mutex
	items []SystemExecutionRecord
	head  int
	count int
}

func newExecutionHistory(capacity int) *executionHistory {
	if capacity < 1 {
		capacity = defaultExecutionHistoryCapacity
	}
	return &executionHistory{items: make([]SystemExecutionRecord, capacity)}
}

func (h *executionHistory) Add(record SystemExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first.
func (h *executionHistory) Recent(limit int) []SystemExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]SystemExecutionRecord, 0, limit)
	for i := range limit {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

// systemHistory is the per-system state persisted across frames: the last
// observed duration drives load balancing and the preferred worker drives
// pinning. Only the coordinating goroutine writes it; snapshots are taken
// under mu.
type systemHistory struct {
	mu              sync.RWMutex
	lastDuration    []time.Duration
	preferredWorker []int
	runs            []uint64
	failures        []uint64
}

func newSystemHistory(n int) *systemHistory {
	h := &systemHistory{
		lastDuration:    make([]time.Duration, n),
		preferredWorker: make([]int, n),
		runs:            make([]uint64, n),
		failures:        make([]uint64, n),
	}
	for i := range h.preferredWorker {
		h.preferredWorker[i] = -1
	}
	return h
}

func (h *systemHistory) record(index int, elapsed time.Duration, failed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastDuration[index] = elapsed
	h.runs[index]++
	if failed {
		h.failures[index]++
	}
}

// pin sets the preferred worker once; later calls keep the first worker.
func (h *systemHistory) pin(index, workerID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.preferredWorker[index] < 0 {
		h.preferredWorker[index] = workerID
	}
}

// duration and preferred are read by the coordinator only, which is also the
// only writer, so they skip the lock.
func (h *systemHistory) duration(index int) time.Duration { return h.lastDuration[index] }
func (h *systemHistory) preferred(index int) int           { return h.preferredWorker[index] }
