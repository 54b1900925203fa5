package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandle(reads, writes ResourceSet, state SharedState) *Handle {
	desc := SystemDescriptor{Name: "sys", Reads: reads, Writes: writes}.normalized()
	return newHandle(&desc, state, FrameInfo{Number: 1}, 0)
}

func TestHandle_DeclaredAccess(t *testing.T) {
	// Given: a store with three resources and a handle reading 1, writing 2
	store := NewResourceStore()
	store.Insert(1, new(int))
	store.Insert(2, new(string))
	store.Insert(3, new(float64))
	h := newTestHandle(NewResourceSet(1), NewResourceSet(2), store)

	// Then: declared reads and writes resolve
	_, err := h.Read(1)
	assert.NoError(t, err)
	_, err = h.Read(2)
	assert.NoError(t, err, "a written resource can also be read")
	_, err = h.Write(2)
	assert.NoError(t, err)

	// And: undeclared access is refused
	_, err = h.Write(1)
	var undeclared *UndeclaredAccessError
	require.ErrorAs(t, err, &undeclared)
	assert.True(t, undeclared.Write)
	assert.Equal(t, ResourceID(1), undeclared.Resource)

	_, err = h.Read(3)
	require.ErrorAs(t, err, &undeclared)
	assert.False(t, undeclared.Write)
}

func TestHandle_Typed(t *testing.T) {
	store := NewResourceStore()
	n := 41
	store.Insert(1, &n)
	h := newTestHandle(nil, NewResourceSet(1), store)

	p, err := WriteAs[*int](h, 1)
	require.NoError(t, err)
	*p++
	assert.Equal(t, 42, n)

	v, err := ReadAs[*int](h, 1)
	require.NoError(t, err)
	assert.Equal(t, 42, *v)

	_, err = ReadAs[*string](h, 1)
	assert.ErrorContains(t, err, "not *string")
}

func TestHandle_MissingResource(t *testing.T) {
	h := newTestHandle(NewResourceSet(1), nil, NewResourceStore())
	_, err := h.Read(1)
	assert.ErrorIs(t, err, ErrResourceMissing)

	h = newTestHandle(NewResourceSet(1), nil, nil)
	_, err = h.Read(1)
	assert.ErrorIs(t, err, ErrResourceMissing)
}

func TestHandle_Released(t *testing.T) {
	store := NewResourceStore()
	store.Insert(1, new(int))
	h := newTestHandle(nil, NewResourceSet(1), store)

	h.release()

	_, err := h.Read(1)
	assert.ErrorIs(t, err, ErrHandleReleased)
	_, err = h.Write(1)
	assert.ErrorIs(t, err, ErrHandleReleased)
	assert.Equal(t, "sys", h.System())
	assert.Equal(t, uint64(1), h.Frame().Number)
}
