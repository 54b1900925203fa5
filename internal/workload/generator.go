// Package workload builds synthetic systems with random resource footprints,
// used by the framesched CLI to exercise a scheduler.
package workload

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/Swind/go-frame-scheduler/core"
)

// Params drives the generator.
type Params struct {
	Systems   int
	Resources int

	// MeanWork is the mean of the exponential per-system work time.
	MeanWork time.Duration
	// MaxWork caps a single system's work time. Zero means 10x MeanWork.
	MaxWork time.Duration

	// PRead and PWrite are per-resource probabilities; a resource is never
	// both read and written by the same system.
	PRead  float64
	PWrite float64

	// PPin is the fraction of systems pinned to a single worker.
	PPin float64
}

// DefaultParams returns a small mixed workload.
func DefaultParams() Params {
	return Params{
		Systems:   16,
		Resources: 8,
		MeanWork:  500 * time.Microsecond,
		PRead:     0.25,
		PWrite:    0.1,
		PPin:      0.1,
	}
}

// Counter is the value stored for every synthetic resource.
type Counter struct {
	Writes atomic.Int64
}

// Spec is one generated system before registration.
type Spec struct {
	Name   string
	Layer  core.Layer
	Reads  []core.ResourceID
	Writes []core.ResourceID
	Pinned bool
	Work   time.Duration
}

// Generator produces Specs and registers them.
type Generator struct {
	rnd       *rand.Rand
	par       Params
	resources *core.ResourceRegistry
	ids       []core.ResourceID
}

// NewGenerator creates a generator. A nil r seeds from the clock.
func NewGenerator(r *rand.Rand, par Params) *Generator {
	if r == nil {
		seed := uint64(time.Now().UnixNano())
		r = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if par.MaxWork <= 0 {
		par.MaxWork = 10 * par.MeanWork
	}
	g := &Generator{rnd: r, par: par, resources: core.NewResourceRegistry()}
	for i := range par.Resources {
		g.ids = append(g.ids, g.resources.Register(fmt.Sprintf("resource-%02d", i)))
	}
	return g
}

// Resources returns the registry naming the generated resource IDs.
func (g *Generator) Resources() *core.ResourceRegistry { return g.resources }

// Specs draws Params.Systems system specs.
func (g *Generator) Specs() []Spec {
	specs := make([]Spec, 0, g.par.Systems)
	for i := range g.par.Systems {
		s := Spec{
			Name:   fmt.Sprintf("system-%03d", i),
			Layer:  core.Layer(g.rnd.IntN(3) - 1),
			Pinned: g.rnd.Float64() < g.par.PPin,
			Work:   g.work(),
		}
		for _, id := range g.ids {
			switch p := g.rnd.Float64(); {
			case p < g.par.PWrite:
				s.Writes = append(s.Writes, id)
			case p < g.par.PWrite+g.par.PRead:
				s.Reads = append(s.Reads, id)
			}
		}
		specs = append(specs, s)
	}
	return specs
}

// work draws an exponential duration around MeanWork.
func (g *Generator) work() time.Duration {
	if g.par.MeanWork <= 0 {
		return 0
	}
	d := time.Duration(-math.Log(1-g.rnd.Float64()) * float64(g.par.MeanWork))
	return min(d, g.par.MaxWork)
}

// Populate inserts a Counter for every resource into store and registers
// every spec in reg.
func (g *Generator) Populate(reg *core.Registry, store *core.ResourceStore, specs []Spec) error {
	for _, id := range g.ids {
		store.Insert(id, &Counter{})
	}
	for _, s := range specs {
		if err := reg.Register(s.Name, s.Layer, s.Reads, s.Writes, s.Pinned, system(s)); err != nil {
			return fmt.Errorf("register %s: %w", s.Name, err)
		}
	}
	return nil
}

func system(s Spec) core.SystemFunc {
	return func(ctx context.Context, h *core.Handle) error {
		for _, id := range s.Reads {
			if _, err := core.ReadAs[*Counter](h, id); err != nil {
				return err
			}
		}
		for _, id := range s.Writes {
			c, err := core.WriteAs[*Counter](h, id)
			if err != nil {
				return err
			}
			c.Writes.Add(1)
		}
		if s.Work <= 0 {
			return nil
		}
		select {
		case <-time.After(s.Work):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
