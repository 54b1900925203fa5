package core

import (
	"context"
	"fmt"
)

// SystemFunc is the unit of work (Closure) run once per frame.
// The handle only exposes the resources the system declared.
type SystemFunc func(ctx context.Context, h *Handle) error

// =============================================================================
// Layer: coarse dispatch ordering
// =============================================================================

// Layer orders systems within a frame. Lower layers are considered for
// dispatch first. Any int is a valid layer; the named ones cover the common
// pre/main/post split.
type Layer int

const (
	// LayerPre runs input handling and setup that other systems rely on.
	LayerPre Layer = -1

	// LayerMain is the default layer.
	LayerMain Layer = 0

	// LayerPost runs cleanup, synchronization and reporting.
	LayerPost Layer = 1
)

func (l Layer) String() string {
	switch l {
	case LayerPre:
		return "pre"
	case LayerMain:
		return "main"
	case LayerPost:
		return "post"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// =============================================================================
// SystemDescriptor
// =============================================================================

// SystemDescriptor describes one registered system. It is immutable once the
// registry accepted it.
type SystemDescriptor struct {
	Name   string
	Work   SystemFunc
	Reads  ResourceSet
	Writes ResourceSet
	Layer  Layer

	// PinToSingleWorker makes the system run on the worker it first
	// completed on, for every later frame.
	PinToSingleWorker bool
}

// normalized returns a copy with sorted, duplicate-free sets.
// A resource both read and written is kept as a write only.
func (d SystemDescriptor) normalized() SystemDescriptor {
	d.Writes = NewResourceSet(d.Writes...)
	d.Reads = NewResourceSet(d.Reads...).Without(d.Writes)
	return d
}

// Touches reports whether the system declares id in either set.
func (d *SystemDescriptor) Touches(id ResourceID) bool {
	return d.Reads.Contains(id) || d.Writes.Contains(id)
}

// ConflictsWith returns the resources that prevent d and other from running
// at the same time.
func (d *SystemDescriptor) ConflictsWith(other *SystemDescriptor) ResourceSet {
	var out ResourceSet
	out = append(out, d.Writes.Intersect(other.Writes)...)
	out = append(out, d.Writes.Intersect(other.Reads)...)
	out = append(out, d.Reads.Intersect(other.Writes)...)
	return NewResourceSet(out...)
}
