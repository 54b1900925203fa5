package core

import (
	"fmt"
	"sync/atomic"
)

// Handle is the capability a dispatched system receives. It is built for one
// dispatch and only resolves the resources that system declared: reads and
// writes through Read, writes only through Write. Once the system returns the
// handle is released and every call fails with ErrHandleReleased.
type Handle struct {
	system   string
	reads    ResourceSet
	writes   ResourceSet
	state    SharedState
	frame    FrameInfo
	workerID int
	released atomic.Bool
}

func newHandle(desc *SystemDescriptor, state SharedState, frame FrameInfo, workerID int) *Handle {
	return &Handle{
		system:   desc.Name,
		reads:    desc.Reads,
		writes:   desc.Writes,
		state:    state,
		frame:    frame,
		workerID: workerID,
	}
}

// System returns the name of the system this handle was built for.
func (h *Handle) System() string { return h.system }

// Frame returns the frame being executed.
func (h *Handle) Frame() FrameInfo { return h.frame }

// WorkerID returns the worker running the system.
func (h *Handle) WorkerID() int { return h.workerID }

// Read resolves a resource declared for reading or writing.
func (h *Handle) Read(id ResourceID) (any, error) {
	if h.released.Load() {
		return nil, ErrHandleReleased
	}
	if !h.reads.Contains(id) && !h.writes.Contains(id) {
		return nil, &UndeclaredAccessError{System: h.system, Resource: id}
	}
	return h.lookup(id)
}

// Write resolves a resource declared for writing.
func (h *Handle) Write(id ResourceID) (any, error) {
	if h.released.Load() {
		return nil, ErrHandleReleased
	}
	if !h.writes.Contains(id) {
		return nil, &UndeclaredAccessError{System: h.system, Resource: id, Write: true}
	}
	return h.lookup(id)
}

func (h *Handle) lookup(id ResourceID) (any, error) {
	if h.state == nil {
		return nil, fmt.Errorf("%w: %d", ErrResourceMissing, uint32(id))
	}
	v, ok := h.state.Resource(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrResourceMissing, uint32(id))
	}
	return v, nil
}

func (h *Handle) release() {
	h.released.Store(true)
}

// ReadAs resolves a readable resource and asserts its type.
func ReadAs[T any](h *Handle, id ResourceID) (T, error) {
	var zero T
	v, err := h.Read(id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("resource %d is %T, not %T", uint32(id), v, zero)
	}
	return t, nil
}

// WriteAs resolves a writable resource and asserts its type.
func WriteAs[T any](h *Handle, id ResourceID) (T, error) {
	var zero T
	v, err := h.Write(id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("resource %d is %T, not %T", uint32(id), v, zero)
	}
	return t, nil
}
