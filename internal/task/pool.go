package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 100
	defaultRetention = 24 * time.Hour
)

// PoolOptions sizes a Pool.
type PoolOptions struct {
	Workers   int
	QueueSize int
	// Retention is how long finished tasks stay queryable.
	Retention time.Duration
	// SweepInterval defaults to a tenth of Retention, capped at ten minutes.
	SweepInterval time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// PoolOptionsFromConfig maps the tasks config section onto PoolOptions.
func PoolOptionsFromConfig(cfg config.TasksConfig) PoolOptions {
	return PoolOptions{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Retention: time.Duration(cfg.RetentionHours) * time.Hour,
	}
}

type entry struct {
	task   model.Task
	input  json.RawMessage
	cancel context.CancelFunc
}

// Pool is an in-process Manager backed by a bounded queue and a fixed set
// of workers.
type Pool struct {
	registry  *Registry
	retention time.Duration
	now       func() time.Time

	mu     sync.Mutex
	tasks  map[string]*entry
	queue  chan *entry
	closed bool

	baseCtx    context.Context
	cancelBase context.CancelFunc
	workers    sync.WaitGroup
	stopSweep  chan struct{}
	sweepDone  chan struct{}
}

// NewPool starts the workers and the retention sweeper.
func NewPool(registry *Registry, opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = min(opts.Retention/10, 10*time.Minute)
	}

	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		registry:   registry,
		retention:  opts.Retention,
		now:        func() time.Time { return opts.Clock().UTC() },
		tasks:      make(map[string]*entry),
		queue:      make(chan *entry, opts.QueueSize),
		baseCtx:    ctx,
		cancelBase: cancel,
		stopSweep:  make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}
	for i := 0; i < opts.Workers; i++ {
		p.workers.Add(1)
		go p.work()
	}
	go p.sweepLoop(opts.SweepInterval)
	return p
}

// Submit implements Manager.
func (p *Pool) Submit(_ context.Context, kind string, input any) (string, error) {
	if !p.registry.Has(kind) {
		return "", eris.Wrapf(ErrUnknownKind, "task: kind %q", kind)
	}
	raw, err := encodeInput(input)
	if err != nil {
		return "", err
	}

	now := p.now()
	e := &entry{
		task: model.Task{
			ID:        uuid.New().String(),
			Kind:      kind,
			State:     model.TaskPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		input: raw,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrClosed
	}
	select {
	case p.queue <- e:
	default:
		return "", ErrQueueFull
	}
	p.tasks[e.task.ID] = e
	zap.L().Debug("task: submitted", zap.String("task_id", e.task.ID), zap.String("kind", kind))
	return e.task.ID, nil
}

// Get implements Manager.
func (p *Pool) Get(_ context.Context, id string) (*model.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.tasks[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "task: %s", id)
	}
	t := e.task
	return &t, nil
}

// Cancel implements Manager. A pending task is cancelled immediately; a
// running task has its context cancelled and settles when the handler
// returns.
func (p *Pool) Cancel(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.tasks[id]
	if !ok {
		return eris.Wrapf(ErrNotFound, "task: %s", id)
	}
	switch {
	case e.task.State.Terminal():
	case e.task.State == model.TaskPending:
		p.transitionLocked(e, model.TaskCancelled, func(t *model.Task) { t.Error = "cancelled before start" })
	case e.cancel != nil:
		e.cancel()
	}
	return nil
}

// Len returns the number of tracked tasks.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Sweep drops finished tasks older than the retention window and returns
// how many were removed.
func (p *Pool) Sweep() int {
	cutoff := p.now().Add(-p.retention)
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for id, e := range p.tasks {
		if e.task.State.Terminal() && e.task.UpdatedAt.Before(cutoff) {
			delete(p.tasks, id)
			n++
		}
	}
	return n
}

// Shutdown stops accepting work and waits for queued and running tasks to
// finish. If ctx ends first, running handlers are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
		close(p.stopSweep)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		<-p.sweepDone
		close(done)
	}()

	select {
	case <-done:
		p.cancelBase()
		return nil
	case <-ctx.Done():
		p.cancelBase()
		<-done
		return eris.Wrap(ctx.Err(), "task: shutdown")
	}
}

func (p *Pool) work() {
	defer p.workers.Done()
	for e := range p.queue {
		p.run(e)
	}
}

func (p *Pool) run(e *entry) {
	p.mu.Lock()
	if e.task.State != model.TaskPending {
		// Cancelled while queued.
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(p.baseCtx)
	defer cancel()
	e.cancel = cancel
	p.transitionLocked(e, model.TaskStarted, nil)
	id, kind := e.task.ID, e.task.Kind
	p.mu.Unlock()

	log := zap.L().With(zap.String("task_id", id), zap.String("kind", kind))
	report := func(pct int) {
		pct = max(0, min(100, pct))
		p.mu.Lock()
		defer p.mu.Unlock()
		p.transitionLocked(e, model.TaskProgress, func(t *model.Task) {
			if pct > t.Progress {
				t.Progress = pct
			}
		})
	}

	start := time.Now()
	out, err := p.safeHandle(ctx, kind, e.input, report)

	p.mu.Lock()
	defer p.mu.Unlock()
	e.cancel = nil
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		p.transitionLocked(e, model.TaskCancelled, func(t *model.Task) { t.Error = err.Error() })
		log.Info("task: cancelled", zap.Duration("elapsed", time.Since(start)))
	case err != nil:
		p.transitionLocked(e, model.TaskFailure, func(t *model.Task) { t.Error = err.Error() })
		log.Warn("task: failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
	default:
		raw, mErr := json.Marshal(out)
		if mErr != nil {
			p.transitionLocked(e, model.TaskFailure, func(t *model.Task) { t.Error = "encode result: " + mErr.Error() })
			return
		}
		p.transitionLocked(e, model.TaskSuccess, func(t *model.Task) {
			t.Result = raw
			t.Progress = 100
		})
		log.Info("task: succeeded", zap.Duration("elapsed", time.Since(start)))
	}
}

// safeHandle runs the handler and converts a panic into an error.
func (p *Pool) safeHandle(ctx context.Context, kind string, input json.RawMessage, report ProgressFunc) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("task: handler panic", zap.String("kind", kind), zap.Any("panic", r))
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return p.registry.handle(ctx, kind, input, report)
}

// transitionLocked moves e to state unless it is already terminal. mutate
// may adjust other fields in the same step. p.mu must be held.
func (p *Pool) transitionLocked(e *entry, state model.TaskState, mutate func(*model.Task)) bool {
	if e.task.State.Terminal() {
		return false
	}
	if state == model.TaskProgress && e.task.State == model.TaskPending {
		return false
	}
	e.task.State = state
	if mutate != nil {
		mutate(&e.task)
	}
	e.task.UpdatedAt = p.now()
	return true
}

func (p *Pool) sweepLoop(interval time.Duration) {
	defer close(p.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopSweep:
			return
		case <-ticker.C:
			if n := p.Sweep(); n > 0 {
				zap.L().Debug("task: swept finished tasks", zap.Int("count", n))
			}
		}
	}
}
