package core

import (
	"sync"
)

// Registry collects system descriptors during setup. It is handed to
// NewScheduler once, after which it is frozen.
//
// Insertion order is preserved and breaks ties between systems that share a
// layer and have equal duration history.
type Registry struct {
	mu      sync.Mutex
	systems []SystemDescriptor
	byName  map[string]int
	frozen  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a system. Conflicts between systems are not validated here;
// they are resolved every frame by the access tracker.
func (r *Registry) Register(
	name string,
	layer Layer,
	reads, writes []ResourceID,
	pinToSingleWorker bool,
	work SystemFunc,
) error {
	return r.RegisterSystem(SystemDescriptor{
		Name:              name,
		Work:              work,
		Reads:             reads,
		Writes:            writes,
		Layer:             layer,
		PinToSingleWorker: pinToSingleWorker,
	})
}

// RegisterSystem adds a fully described system.
func (r *Registry) RegisterSystem(desc SystemDescriptor) error {
	if desc.Name == "" {
		return ErrEmptySystemName
	}
	if desc.Work == nil {
		return ErrNilSystem
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}
	if _, exists := r.byName[desc.Name]; exists {
		return &DuplicateNameError{Name: desc.Name}
	}
	r.byName[desc.Name] = len(r.systems)
	r.systems = append(r.systems, desc.normalized())
	return nil
}

// Len returns the number of registered systems.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.systems)
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (SystemDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byName[name]
	if !ok {
		return SystemDescriptor{}, false
	}
	return r.systems[i], true
}

// Systems returns a copy of the descriptors in registration order.
func (r *Registry) Systems() []SystemDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SystemDescriptor, len(r.systems))
	copy(out, r.systems)
	return out
}

// freeze stops further registration and returns the final system list.
func (r *Registry) freeze() []SystemDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	out := make([]SystemDescriptor, len(r.systems))
	copy(out, r.systems)
	return out
}
