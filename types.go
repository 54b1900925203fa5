package framescheduler

import "github.com/Swind/go-frame-scheduler/core"

// Version is reported as the service version of trace resources.
const Version = "0.1.0"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the framescheduler package for most use cases.

// Scheduler runs every registered system once per frame
type Scheduler = core.Scheduler

// Registry collects systems before a scheduler is built
type Registry = core.Registry

// SystemFunc is the unit of work (Closure)
type SystemFunc = core.SystemFunc

// SystemDescriptor describes one registered system
type SystemDescriptor = core.SystemDescriptor

// Handle is the per-dispatch capability passed to a system
type Handle = core.Handle

// ResourceID identifies one piece of shared state
type ResourceID = core.ResourceID

// ResourceStore is a map-backed SharedState
type ResourceStore = core.ResourceStore

// SharedState resolves resources for handles
type SharedState = core.SharedState

// Layer orders systems within a frame
type Layer = core.Layer

// FrameReport summarises one Run call
type FrameReport = core.FrameReport

// SystemFailure records one failed system run
type SystemFailure = core.SystemFailure

// LivelockError is returned by Run when no system can make progress
type LivelockError = core.LivelockError

// Layer constants
const (
	LayerPre  Layer = core.LayerPre
	LayerMain Layer = core.LayerMain
	LayerPost Layer = core.LayerPost
)

// Barrier modes
const (
	BarrierSoft = core.BarrierSoft
	BarrierHard = core.BarrierHard
)

// NewRegistry creates an empty system registry.
func NewRegistry() *Registry {
	return core.NewRegistry()
}

// NewResourceID allocates (or looks up) a process-wide resource ID by name.
func NewResourceID(name string) ResourceID {
	return core.NewResourceID(name)
}

// NewResourceStore creates an empty resource store.
func NewResourceStore() *ResourceStore {
	return core.NewResourceStore()
}

// ReadAs resolves a readable resource through h and asserts its type.
func ReadAs[T any](h *Handle, id ResourceID) (T, error) {
	return core.ReadAs[T](h, id)
}

// WriteAs resolves a writable resource through h and asserts its type.
func WriteAs[T any](h *Handle, id ResourceID) (T, error) {
	return core.WriteAs[T](h, id)
}
