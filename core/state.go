package core

import "sync"

// SharedState is the container systems operate on. Its storage layout is
// owned by the host; the scheduler only needs to resolve a resource by ID.
type SharedState interface {
	Resource(id ResourceID) (any, bool)
}

// ResourceStore is a simple SharedState keyed by ResourceID.
//
// Values are normally pointers. The store guards its own map; the data behind
// each value is guarded by the scheduler's access tracker, not by the store.
type ResourceStore struct {
	mu    sync.RWMutex
	items map[ResourceID]any
}

// NewResourceStore creates an empty store.
func NewResourceStore() *ResourceStore {
	return &ResourceStore{items: make(map[ResourceID]any)}
}

// Insert sets the value for id, replacing any previous one.
func (s *ResourceStore) Insert(id ResourceID, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = value
}

// Resource implements SharedState.
func (s *ResourceStore) Resource(id ResourceID) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[id]
	return v, ok
}

// Len returns the number of stored resources.
func (s *ResourceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
