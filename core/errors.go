package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilSystem is returned when a system is registered without work.
	ErrNilSystem = errors.New("system work function is nil")

	// ErrEmptySystemName is returned when a system is registered without a name.
	ErrEmptySystemName = errors.New("system name is empty")

	// ErrRegistryFrozen is returned when registering after the registry was
	// handed to a scheduler.
	ErrRegistryFrozen = errors.New("registry is frozen")

	// ErrSchedulerClosed is returned by Run after Shutdown.
	ErrSchedulerClosed = errors.New("scheduler is shut down")

	// ErrHandleReleased is returned when a handle is used after its system returned.
	ErrHandleReleased = errors.New("handle used after system returned")

	// ErrResourceMissing is returned when a declared resource is absent from the shared state.
	ErrResourceMissing = errors.New("resource not present in shared state")

	// ErrTrackerBusy is returned when a frame starts with resources still held.
	ErrTrackerBusy = errors.New("access tracker holds resources at frame start")
)

// DuplicateNameError is returned when a system name is registered twice.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("system %q is already registered", e.Name)
}

// UndeclaredAccessError is returned by a Handle when a system touches a
// resource outside its declared footprint.
type UndeclaredAccessError struct {
	System   string
	Resource ResourceID
	Write    bool
}

func (e *UndeclaredAccessError) Error() string {
	mode := "read"
	if e.Write {
		mode = "write"
	}
	return fmt.Sprintf("system %q has no declared %s access to resource %d", e.System, mode, uint32(e.Resource))
}

// Conflict names one system that cannot start and the resources it waits on.
type Conflict struct {
	System    string
	Resources ResourceSet
}

// LivelockError reports a frame where systems remain but none can be
// dispatched and no worker is busy, so no completion will ever unblock them.
type LivelockError struct {
	Frame     uint64
	Remaining []string
	Conflicts []Conflict
}

func (e *LivelockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frame %d livelocked with %d system(s) left: %s",
		e.Frame, len(e.Remaining), strings.Join(e.Remaining, ", "))
	for _, c := range e.Conflicts {
		fmt.Fprintf(&b, "; %s blocked on %v", c.System, []ResourceID(c.Resources))
	}
	return b.String()
}

// SystemFailure records one system that returned an error or panicked
// during a frame.
type SystemFailure struct {
	System   string
	Layer    Layer
	WorkerID int
	Err      error
	Panicked bool
	Stack    []byte
}

func (f SystemFailure) Error() string {
	if f.Panicked {
		return fmt.Sprintf("system %q panicked on worker %d: %v", f.System, f.WorkerID, f.Err)
	}
	return fmt.Sprintf("system %q failed on worker %d: %v", f.System, f.WorkerID, f.Err)
}

func (f SystemFailure) Unwrap() error { return f.Err }

// PanicError wraps a value recovered from a panicking system.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
