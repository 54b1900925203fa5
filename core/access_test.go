package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessTracker_ReadersShare(t *testing.T) {
	// Given: a fresh tracker
	tr := NewAccessTracker()
	x := ResourceID(1)

	// When: two readers acquire the same resource
	assert.True(t, tr.CanRead(x))
	tr.AcquireRead(x)
	assert.True(t, tr.CanRead(x))
	tr.AcquireRead(x)

	// Then: reads are counted and writes are blocked
	assert.Equal(t, AccessState{ReadCount: 2}, tr.State(x))
	assert.False(t, tr.CanWrite(x))

	tr.ReleaseRead(x)
	assert.False(t, tr.CanWrite(x))
	tr.ReleaseRead(x)
	assert.True(t, tr.CanWrite(x))
	assert.True(t, tr.Idle())
}

func TestAccessTracker_WriterExcludesEveryone(t *testing.T) {
	tr := NewAccessTracker()
	x := ResourceID(1)

	tr.AcquireWrite(x)
	assert.False(t, tr.CanRead(x))
	assert.False(t, tr.CanWrite(x))
	assert.False(t, tr.Idle())

	tr.ReleaseWrite(x)
	assert.True(t, tr.CanRead(x))
	assert.True(t, tr.CanWrite(x))
}

func TestAccessTracker_GuardedAcquire(t *testing.T) {
	// Given: a resource being written
	tr := NewAccessTracker()
	x := ResourceID(7)
	tr.AcquireWrite(x)

	// When: acquires that break exclusivity are attempted
	tr.AcquireRead(x)
	tr.AcquireWrite(x)

	// Then: the state is unchanged
	assert.Equal(t, AccessState{WriteActive: true}, tr.State(x))

	// And: a write is refused while a reader holds the resource
	y := ResourceID(8)
	tr.AcquireRead(y)
	tr.AcquireWrite(y)
	assert.Equal(t, AccessState{ReadCount: 1}, tr.State(y))
}

func TestAccessTracker_ReleaseSaturates(t *testing.T) {
	tr := NewAccessTracker()
	x := ResourceID(3)

	tr.ReleaseRead(x)
	tr.ReleaseWrite(x)
	assert.Equal(t, AccessState{}, tr.State(x))

	tr.AcquireRead(x)
	tr.ReleaseRead(x)
	tr.ReleaseRead(x)
	assert.Equal(t, 0, tr.State(x).ReadCount)
	assert.True(t, tr.CanWrite(x))
}

func TestAccessTracker_Footprint(t *testing.T) {
	tr := NewAccessTracker()
	x, y, z := ResourceID(1), ResourceID(2), ResourceID(3)

	reads := NewResourceSet(x, y)
	writes := NewResourceSet(z)
	assert.True(t, tr.CanAcquire(reads, writes))
	tr.Acquire(reads, writes)

	// A second reader of x and y is fine, a writer of y is not.
	assert.True(t, tr.CanAcquire(NewResourceSet(x, y), nil))
	assert.False(t, tr.CanAcquire(nil, NewResourceSet(y)))
	assert.False(t, tr.CanAcquire(NewResourceSet(z), nil))

	tr.Release(reads, writes)
	assert.True(t, tr.Idle())
	assert.True(t, tr.CanAcquire(nil, NewResourceSet(x, y, z)))
}

func TestAccessTracker_Reset(t *testing.T) {
	tr := NewAccessTracker()
	tr.AcquireWrite(1)
	tr.AcquireRead(2)
	assert.False(t, tr.Idle())

	tr.Reset()
	assert.True(t, tr.Idle())
	assert.True(t, tr.CanWrite(1))
	assert.True(t, tr.CanWrite(2))
}
