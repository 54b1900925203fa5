package core

import (
	"errors"
	"time"
)

// FrameInfo identifies one Run call. Value is the opaque frame context the
// host passed to Run.
type FrameInfo struct {
	Number uint64
	ID     string
	Value  any
}

// FrameReport summarises one Run call.
type FrameReport struct {
	Frame     FrameInfo
	StartedAt time.Time
	Duration  time.Duration

	// Executed counts systems that ran to completion, failed ones included.
	Executed int

	// Failures lists systems that returned an error or panicked.
	Failures []SystemFailure

	// Skipped lists systems never dispatched because the frame was
	// cancelled or livelocked.
	Skipped []string
}

// Failed reports whether any system failed.
func (r *FrameReport) Failed() bool {
	return r != nil && len(r.Failures) > 0
}

// Err joins all system failures, or returns nil.
func (r *FrameReport) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
