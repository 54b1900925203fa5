package core

import (
	"fmt"
	"sort"
	"sync"
)

// ResourceID identifies one distinct piece of shared state a system may declare
// dependence on. IDs are allocated by a ResourceRegistry and are never reused
// for a different logical resource during the life of that registry.
type ResourceID uint32

// ResourceRegistry hands out ResourceIDs by name.
// Registering the same name twice returns the same ID.
type ResourceRegistry struct {
	mu    sync.RWMutex
	ids   map[string]ResourceID
	names []string
}

// NewResourceRegistry creates an empty registry. ID 0 is never allocated.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{
		ids:   make(map[string]ResourceID),
		names: []string{""},
	}
}

// DefaultResources is the process-wide registry used by NewResourceID.
var DefaultResources = NewResourceRegistry()

// NewResourceID registers name in DefaultResources.
func NewResourceID(name string) ResourceID {
	return DefaultResources.Register(name)
}

// Register returns the ID for name, allocating one on first use.
func (r *ResourceRegistry) Register(name string) ResourceID {
	r.mu.RLock()
	id, ok := r.ids[name]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[name]; ok {
		return id
	}
	id = ResourceID(len(r.names))
	r.names = append(r.names, name)
	r.ids[name] = id
	return id
}

// Lookup returns the ID registered for name.
func (r *ResourceRegistry) Lookup(name string) (ResourceID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[name]
	return id, ok
}

// Name returns the registered name of id, or a numeric placeholder for
// IDs this registry never allocated.
func (r *ResourceRegistry) Name(id ResourceID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id > 0 && int(id) < len(r.names) {
		return r.names[id]
	}
	return fmt.Sprintf("resource#%d", uint32(id))
}

// Len returns the number of allocated IDs.
func (r *ResourceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names) - 1
}

// ResourceSet is a sorted, duplicate-free list of resource IDs.
type ResourceSet []ResourceID

// NewResourceSet builds a set from ids, dropping duplicates.
func NewResourceSet(ids ...ResourceID) ResourceSet {
	if len(ids) == 0 {
		return nil
	}
	out := make(ResourceSet, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// Contains reports whether id is in the set.
func (s ResourceSet) Contains(id ResourceID) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Without returns the members of s that are not in other.
func (s ResourceSet) Without(other ResourceSet) ResourceSet {
	if len(other) == 0 {
		return s
	}
	var out ResourceSet
	for _, id := range s {
		if !other.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Intersect returns the members present in both sets.
func (s ResourceSet) Intersect(other ResourceSet) ResourceSet {
	var out ResourceSet
	for _, id := range s {
		if other.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}
