package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopSystem(ctx context.Context, h *Handle) error { return nil }

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", LayerMain, []ResourceID{1}, []ResourceID{2}, false, noopSystem))
	require.NoError(t, r.Register("b", LayerPre, nil, nil, true, noopSystem))

	assert.Equal(t, 2, r.Len())
	d, ok := r.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, LayerPre, d.Layer)
	assert.True(t, d.PinToSingleWorker)

	systems := r.Systems()
	require.Len(t, systems, 2)
	assert.Equal(t, "a", systems[0].Name, "registration order is kept")
	assert.Equal(t, ResourceSet{1}, systems[0].Reads)
}

func TestRegistry_Rejects(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", LayerMain, nil, nil, false, noopSystem))

	err := r.Register("a", LayerMain, nil, nil, false, noopSystem)
	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.Name)

	assert.ErrorIs(t, r.Register("", LayerMain, nil, nil, false, noopSystem), ErrEmptySystemName)
	assert.ErrorIs(t, r.Register("nil", LayerMain, nil, nil, false, nil), ErrNilSystem)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_FrozenByScheduler(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", LayerMain, nil, nil, false, noopSystem))

	s := NewScheduler(r, &SchedulerConfig{Workers: 1})
	defer s.Shutdown()

	assert.ErrorIs(t, r.Register("late", LayerMain, nil, nil, false, noopSystem), ErrRegistryFrozen)
}
