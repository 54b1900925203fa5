package core

// AccessState is the exclusivity bookkeeping for one resource.
// WriteActive implies ReadCount == 0 and ReadCount > 0 implies !WriteActive.
type AccessState struct {
	ReadCount   int
	WriteActive bool
}

// AccessTracker keeps per-resource read/write exclusivity for the scheduler.
//
// Acquire is only meaningful after the matching Can* returned true; calling it
// otherwise is a caller bug and the acquire is ignored so the invariant above
// can never be broken by the tracker itself. Not safe for concurrent use, the
// scheduler's coordinating goroutine is its only user.
type AccessTracker struct {
	states map[ResourceID]*AccessState
}

// NewAccessTracker creates an empty tracker.
func NewAccessTracker() *AccessTracker {
	return &AccessTracker{states: make(map[ResourceID]*AccessState)}
}

func (t *AccessTracker) state(id ResourceID) *AccessState {
	s, ok := t.states[id]
	if !ok {
		s = &AccessState{}
		t.states[id] = s
	}
	return s
}

// CanRead reports whether id has no active writer.
func (t *AccessTracker) CanRead(id ResourceID) bool {
	s, ok := t.states[id]
	return !ok || !s.WriteActive
}

// CanWrite reports whether id has neither readers nor a writer.
func (t *AccessTracker) CanWrite(id ResourceID) bool {
	s, ok := t.states[id]
	return !ok || (!s.WriteActive && s.ReadCount == 0)
}

// AcquireRead registers one more reader of id.
func (t *AccessTracker) AcquireRead(id ResourceID) {
	if !t.CanRead(id) {
		return
	}
	t.state(id).ReadCount++
}

// AcquireWrite marks id as exclusively written.
func (t *AccessTracker) AcquireWrite(id ResourceID) {
	if !t.CanWrite(id) {
		return
	}
	t.state(id).WriteActive = true
}

// ReleaseRead drops one reader of id. Saturates at zero.
func (t *AccessTracker) ReleaseRead(id ResourceID) {
	if s, ok := t.states[id]; ok && s.ReadCount > 0 {
		s.ReadCount--
	}
}

// ReleaseWrite clears the writer flag of id.
func (t *AccessTracker) ReleaseWrite(id ResourceID) {
	if s, ok := t.states[id]; ok {
		s.WriteActive = false
	}
}

// CanAcquire reports whether every read and write in the footprint is available.
func (t *AccessTracker) CanAcquire(reads, writes ResourceSet) bool {
	for _, id := range reads {
		if !t.CanRead(id) {
			return false
		}
	}
	for _, id := range writes {
		if !t.CanWrite(id) {
			return false
		}
	}
	return true
}

// Acquire takes every resource in the footprint.
func (t *AccessTracker) Acquire(reads, writes ResourceSet) {
	for _, id := range reads {
		t.AcquireRead(id)
	}
	for _, id := range writes {
		t.AcquireWrite(id)
	}
}

// Release gives back every resource in the footprint.
func (t *AccessTracker) Release(reads, writes ResourceSet) {
	for _, id := range reads {
		t.ReleaseRead(id)
	}
	for _, id := range writes {
		t.ReleaseWrite(id)
	}
}

// State returns a copy of the bookkeeping for id.
func (t *AccessTracker) State(id ResourceID) AccessState {
	if s, ok := t.states[id]; ok {
		return *s
	}
	return AccessState{}
}

// Idle reports whether no resource is currently held.
func (t *AccessTracker) Idle() bool {
	for _, s := range t.states {
		if s.WriteActive || s.ReadCount > 0 {
			return false
		}
	}
	return true
}

// Reset drops all bookkeeping.
func (t *AccessTracker) Reset() {
	clear(t.states)
}
