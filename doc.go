// Package framescheduler runs a fixed set of systems once per frame on a pool
// of worker goroutines, in parallel wherever their declared resource access
// allows it.
//
// Each system declares the resources it reads and the resources it writes.
// Two systems may overlap in time only if neither writes something the other
// touches. The scheduler enforces this with a per-resource access tracker, so
// systems themselves need no locks around declared state.
//
// # Quick Start
//
//	positions := framescheduler.NewResourceID("positions")
//	velocities := framescheduler.NewResourceID("velocities")
//
//	state := framescheduler.NewResourceStore()
//	state.Insert(positions, &[]float64{0, 0})
//	state.Insert(velocities, &[]float64{1, 2})
//
//	reg := framescheduler.NewRegistry()
//	reg.Register("integrate", framescheduler.LayerMain,
//		[]framescheduler.ResourceID{velocities},
//		[]framescheduler.ResourceID{positions},
//		false,
//		func(ctx context.Context, h *framescheduler.Handle) error {
//			pos, err := framescheduler.WriteAs[*[]float64](h, positions)
//			if err != nil {
//				return err
//			}
//			vel, err := framescheduler.ReadAs[*[]float64](h, velocities)
//			if err != nil {
//				return err
//			}
//			for i := range *pos {
//				(*pos)[i] += (*vel)[i]
//			}
//			return nil
//		})
//
//	rt, err := framescheduler.New(reg, nil, framescheduler.WithState(state))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rt.Close()
//
//	report, err := rt.Run(context.Background(), nil)
//
// # Key Concepts
//
// Registry: collects systems during setup. It is frozen once a scheduler is
// built from it.
//
// Layer: coarse ordering. Systems of a lower layer are dispatched before any
// system of a higher layer. With BarrierHard the higher layer also waits for
// the lower one to finish.
//
// Handle: the capability a system receives. It resolves only the resources
// the system declared and stops working once the system returns.
//
// Pinning: a system registered with pinToSingleWorker runs on the same worker
// every frame, the one it first completed on.
//
// # Failure Handling
//
// A system that returns an error or panics is recorded in the FrameReport;
// the frame carries on and the system's resources are released. Run itself
// only fails when the frame cannot finish: cancellation, livelock or a closed
// scheduler.
package framescheduler
