package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameReport_Err(t *testing.T) {
	var nilReport *FrameReport
	assert.False(t, nilReport.Failed())
	assert.NoError(t, nilReport.Err())

	boom := errors.New("boom")
	r := &FrameReport{Failures: []SystemFailure{
		{System: "a", Err: boom},
		{System: "b", Err: &PanicError{Value: "bad"}, Panicked: true},
	}}
	assert.True(t, r.Failed())

	err := r.Err()
	assert.ErrorIs(t, err, boom)
	var pe *PanicError
	assert.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), `system "b" panicked`)
}

func TestLivelockError_Message(t *testing.T) {
	err := &LivelockError{
		Frame:     4,
		Remaining: []string{"a", "b"},
		Conflicts: []Conflict{{System: "a", Resources: ResourceSet{1}}},
	}
	assert.Equal(t, "frame 4 livelocked with 2 system(s) left: a, b; a blocked on [1]", err.Error())
}
