package task

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func newTestPool(t *testing.T, r *Registry, opts PoolOptions) *Pool {
	t.Helper()
	p := NewPool(r, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
	return p
}

func waitState(t *testing.T, p *Pool, id string, want model.TaskState) *model.Task {
	t.Helper()
	var got *model.Task
	require.Eventually(t, func() bool {
		tk, err := p.Get(context.Background(), id)
		if err != nil {
			return false
		}
		got = tk
		return tk.State == want
	}, 2*time.Second, 5*time.Millisecond, "task %s never reached %s", id, want)
	return got
}

func TestPool_Success(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", echoHandler)
	p := newTestPool(t, r, PoolOptions{Workers: 2})

	id, err := p.Submit(context.Background(), "echo", echoInput{Msg: "hello"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tk := waitState(t, p, id, model.TaskSuccess)
	assert.Equal(t, "echo", tk.Kind)
	assert.Equal(t, 100, tk.Progress)
	assert.JSONEq(t, `{"echo":"hello"}`, string(tk.Result))
	assert.Empty(t, tk.Error)
}

func TestPool_Failure(t *testing.T) {
	r := NewRegistry()
	r.Register("fail", func(context.Context, json.RawMessage, ProgressFunc) (any, error) {
		return nil, errors.New("upstream exploded")
	})
	p := newTestPool(t, r, PoolOptions{Workers: 1})

	id, err := p.Submit(context.Background(), "fail", nil)
	require.NoError(t, err)

	tk := waitState(t, p, id, model.TaskFailure)
	assert.Equal(t, "upstream exploded", tk.Error)
	assert.Nil(t, tk.Result)
}

func TestPool_PanicBecomesFailure(t *testing.T) {
	r := NewRegistry()
	r.Register("panic", func(context.Context, json.RawMessage, ProgressFunc) (any, error) {
		panic("nil map")
	})
	p := newTestPool(t, r, PoolOptions{Workers: 1})

	id, err := p.Submit(context.Background(), "panic", nil)
	require.NoError(t, err)

	tk := waitState(t, p, id, model.TaskFailure)
	assert.Contains(t, tk.Error, "nil map")
}

func TestPool_UnknownKindAndNotFound(t *testing.T) {
	p := newTestPool(t, NewRegistry(), PoolOptions{})

	_, err := p.Submit(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = p.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, p.Cancel(context.Background(), "missing"), ErrNotFound)
}

// blocker returns a handler that waits on release (or its context) and a
// channel that receives once the handler has started.
func blocker(release <-chan struct{}) (Handler, <-chan struct{}) {
	started := make(chan struct{}, 16)
	return func(ctx context.Context, _ json.RawMessage, report ProgressFunc) (any, error) {
		started <- struct{}{}
		report(40)
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, started
}

func TestPool_QueueFull(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h, started := blocker(release)

	r := NewRegistry()
	r.Register("block", h)
	p := newTestPool(t, r, PoolOptions{Workers: 1, QueueSize: 1})

	_, err := p.Submit(context.Background(), "block", nil)
	require.NoError(t, err)
	<-started

	_, err = p.Submit(context.Background(), "block", nil)
	require.NoError(t, err)

	_, err = p.Submit(context.Background(), "block", nil)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestPool_CancelPending(t *testing.T) {
	release := make(chan struct{})
	h, started := blocker(release)

	r := NewRegistry()
	r.Register("block", h)
	p := newTestPool(t, r, PoolOptions{Workers: 1})

	first, err := p.Submit(context.Background(), "block", nil)
	require.NoError(t, err)
	<-started

	queued, err := p.Submit(context.Background(), "block", nil)
	require.NoError(t, err)
	require.NoError(t, p.Cancel(context.Background(), queued))

	tk, err := p.Get(context.Background(), queued)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCancelled, tk.State)

	close(release)
	waitState(t, p, first, model.TaskSuccess)

	// The cancelled task is skipped when dequeued and stays cancelled.
	time.Sleep(20 * time.Millisecond)
	tk, err = p.Get(context.Background(), queued)
	require.NoError(t, err)
	assert.Equal(t, model.TaskCancelled, tk.State)
	assert.Len(t, started, 0)
}

func TestPool_CancelRunning(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h, started := blocker(release)

	r := NewRegistry()
	r.Register("block", h)
	p := newTestPool(t, r, PoolOptions{Workers: 1})

	id, err := p.Submit(context.Background(), "block", nil)
	require.NoError(t, err)
	<-started

	tk := waitState(t, p, id, model.TaskProgress)
	assert.Equal(t, 40, tk.Progress)

	require.NoError(t, p.Cancel(context.Background(), id))
	tk = waitState(t, p, id, model.TaskCancelled)
	assert.Contains(t, tk.Error, "context canceled")

	// Terminal states never change.
	require.NoError(t, p.Cancel(context.Background(), id))
	tk, _ = p.Get(context.Background(), id)
	assert.Equal(t, model.TaskCancelled, tk.State)
}

func TestPool_CancelIsAdvisory(t *testing.T) {
	r := NewRegistry()
	started := make(chan struct{})
	finish := make(chan struct{})
	r.Register("stubborn", func(context.Context, json.RawMessage, ProgressFunc) (any, error) {
		close(started)
		<-finish
		return "finished anyway", nil
	})
	p := newTestPool(t, r, PoolOptions{Workers: 1})

	id, err := p.Submit(context.Background(), "stubborn", nil)
	require.NoError(t, err)
	<-started
	require.NoError(t, p.Cancel(context.Background(), id))
	close(finish)

	tk := waitState(t, p, id, model.TaskSuccess)
	assert.JSONEq(t, `"finished anyway"`, string(tk.Result))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestPool_SweepRetention(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewRegistry()
	r.Register("echo", echoHandler)
	p := newTestPool(t, r, PoolOptions{Workers: 1, Retention: time.Hour, SweepInterval: time.Hour, Clock: clock.Now})

	id, err := p.Submit(context.Background(), "echo", echoInput{Msg: "x"})
	require.NoError(t, err)
	waitState(t, p, id, model.TaskSuccess)

	assert.Equal(t, 0, p.Sweep())
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, p.Sweep())
	assert.Equal(t, 0, p.Len())

	_, err = p.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPool_ShutdownDrains(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", echoHandler)
	p := NewPool(r, PoolOptions{Workers: 2})

	var ids []string
	for i := 0; i < 10; i++ {
		id, err := p.Submit(context.Background(), "echo", echoInput{Msg: "x"})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	for _, id := range ids {
		tk, err := p.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.TaskSuccess, tk.State)
	}

	_, err := p.Submit(context.Background(), "echo", nil)
	assert.ErrorIs(t, err, ErrClosed)
	require.NoError(t, p.Shutdown(ctx))
}
