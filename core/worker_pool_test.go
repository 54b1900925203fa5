package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_Lifecycle(t *testing.T) {
	pool := NewWorkerPool("test-pool", 2, nil)

	assert.Equal(t, "test-pool", pool.ID())
	assert.Equal(t, 2, pool.Size())
	assert.False(t, pool.IsRunning(), "pool should not be running initially")

	pool.Start()
	assert.True(t, pool.IsRunning())
	pool.Start()

	pool.Shutdown()
	assert.False(t, pool.IsRunning())
	pool.Shutdown()
}

func TestWorkerPool_ClampsSize(t *testing.T) {
	pool := NewWorkerPool("tiny", 0, nil)
	assert.Equal(t, 1, pool.Size())
}

func recvCompletion(t *testing.T, pool *WorkerPool) Completion {
	t.Helper()
	select {
	case c := <-pool.Completions():
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no completion within 2s")
		return Completion{}
	}
}

func TestWorkerPool_RunsJobOnChosenWorker(t *testing.T) {
	// Given: a running pool of 3 workers
	pool := NewWorkerPool("exec", 3, nil)
	pool.Start()
	defer pool.Shutdown()

	seen := -1
	desc := SystemDescriptor{Name: "sys", Work: func(ctx context.Context, h *Handle) error {
		seen = h.WorkerID()
		return nil
	}}

	// When: a job is sent to worker 2
	require.NoError(t, pool.send(2, &job{index: 5, desc: &desc, ctx: context.Background()}))

	// Then: worker 2 reports completion for index 5
	c := recvCompletion(t, pool)
	require.NotNil(t, c.Result)
	assert.Equal(t, 2, c.WorkerID)
	assert.Equal(t, 5, c.Result.Index)
	assert.NoError(t, c.Result.Err)
	assert.Equal(t, 2, seen)
}

func TestWorkerPool_SendToBusyWorkerFails(t *testing.T) {
	pool := NewWorkerPool("busy", 1, nil)
	pool.Start()
	defer pool.Shutdown()

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	desc := SystemDescriptor{Name: "block", Work: func(ctx context.Context, h *Handle) error {
		started <- struct{}{}
		<-release
		return nil
	}}
	require.NoError(t, pool.send(0, &job{desc: &desc, ctx: context.Background()}))
	<-started
	// The inbox holds one message; fill it so the next send has nowhere to go.
	require.NoError(t, pool.send(0, &job{desc: &desc, ctx: context.Background()}))
	assert.Error(t, pool.send(0, &job{desc: &desc, ctx: context.Background()}))

	close(release)
	recvCompletion(t, pool)
	recvCompletion(t, pool)
}

func TestWorkerPool_CapturesPanic(t *testing.T) {
	// Given: a pool with a recording panic handler
	panics := NewTestPanicHandler()
	pool := NewWorkerPool("panic", 1, &SchedulerConfig{PanicHandler: panics})
	pool.Start()
	defer pool.Shutdown()

	var handle *Handle
	desc := SystemDescriptor{Name: "explode", Work: func(ctx context.Context, h *Handle) error {
		handle = h
		panic("kaboom")
	}}

	// When: the system panics
	require.NoError(t, pool.send(0, &job{desc: &desc, ctx: context.Background()}))
	c := recvCompletion(t, pool)

	// Then: the result carries the panic and the worker survives
	require.NotNil(t, c.Result)
	assert.True(t, c.Result.Panicked)
	var pe *PanicError
	require.ErrorAs(t, c.Result.Err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, c.Result.Stack)

	calls := panics.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "explode", calls[0].System)

	_, err := handle.Read(1)
	assert.ErrorIs(t, err, ErrHandleReleased)

	ok := SystemDescriptor{Name: "ok", Work: func(ctx context.Context, h *Handle) error { return errors.New("plain") }}
	require.NoError(t, pool.send(0, &job{desc: &ok, ctx: context.Background()}))
	c = recvCompletion(t, pool)
	assert.False(t, c.Result.Panicked)
	assert.EqualError(t, c.Result.Err, "plain")
}
