package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

const (
	// WorkflowName is the registered name of the task workflow.
	WorkflowName = "RunTask"
	// ActivityName is the registered name of the task activity.
	ActivityName = "ExecuteTask"
	// StateQuery is the workflow query that reports the task state.
	StateQuery = "state"

	defaultTaskQueue       = "prospect-tasks"
	defaultActivityTimeout = 10 * time.Minute
	memoKind               = "kind"
)

// WorkflowInput is the single argument of the task workflow.
type WorkflowInput struct {
	Kind  string          `json:"kind"`
	Input json.RawMessage `json:"input"`
	// Timeout bounds one activity attempt.
	Timeout time.Duration `json:"timeout"`
}

// RunTask is the workflow behind every Temporal-backed task. It runs the
// kind's handler once as an activity and answers the state query.
func RunTask(ctx workflow.Context, in WorkflowInput) (json.RawMessage, error) {
	state := model.TaskPending
	if err := workflow.SetQueryHandler(ctx, StateQuery, func() (model.TaskState, error) {
		return state, nil
	}); err != nil {
		return nil, err
	}

	timeout := in.Timeout
	if timeout <= 0 {
		timeout = defaultActivityTimeout
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	state = model.TaskStarted
	var out json.RawMessage
	err := workflow.ExecuteActivity(ctx, ActivityName, in.Kind, in.Input).Get(ctx, &out)
	switch {
	case err != nil && temporal.IsCanceledError(err):
		state = model.TaskCancelled
		return nil, err
	case err != nil:
		state = model.TaskFailure
		return nil, err
	}
	state = model.TaskSuccess
	return out, nil
}

// Activities exposes the registry's handlers to Temporal workers.
type Activities struct {
	registry *Registry
}

// NewActivities wraps registry for worker registration.
func NewActivities(registry *Registry) *Activities {
	return &Activities{registry: registry}
}

// ExecuteTask runs one handler, heartbeating its progress.
func (a *Activities) ExecuteTask(ctx context.Context, kind string, input json.RawMessage) (json.RawMessage, error) {
	report := func(pct int) {
		activity.RecordHeartbeat(ctx, pct)
	}
	out, err := a.registry.handle(ctx, kind, input, report)
	if err != nil {
		if errors.Is(err, ErrUnknownKind) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), "UnknownKind", err)
		}
		return nil, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, eris.Wrap(err, "task: encode result")
	}
	return raw, nil
}

// NewWorker builds a worker that serves the task workflow and activity on
// taskQueue.
func NewWorker(c client.Client, taskQueue string, registry *Registry) worker.Worker {
	if taskQueue == "" {
		taskQueue = defaultTaskQueue
	}
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(RunTask, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(NewActivities(registry).ExecuteTask, activity.RegisterOptions{Name: ActivityName})
	return w
}

// TemporalManager is a Manager that runs each task as a Temporal workflow.
type TemporalManager struct {
	client          client.Client
	registry        *Registry
	taskQueue       string
	activityTimeout time.Duration
}

// Dial connects to the Temporal frontend described by cfg.
func Dial(cfg config.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, eris.Wrap(err, "task: dial temporal")
	}
	return c, nil
}

// NewTemporalManager uses c to start and inspect task workflows. registry
// is consulted only to reject unknown kinds at submit time.
func NewTemporalManager(c client.Client, registry *Registry, cfg config.TemporalConfig) *TemporalManager {
	queue := cfg.TaskQueue
	if queue == "" {
		queue = defaultTaskQueue
	}
	timeout := time.Duration(cfg.ActivityTimeoutMin) * time.Minute
	if timeout <= 0 {
		timeout = defaultActivityTimeout
	}
	return &TemporalManager{client: c, registry: registry, taskQueue: queue, activityTimeout: timeout}
}

// Submit implements Manager.
func (m *TemporalManager) Submit(ctx context.Context, kind string, input any) (string, error) {
	if m.registry != nil && !m.registry.Has(kind) {
		return "", eris.Wrapf(ErrUnknownKind, "task: kind %q", kind)
	}
	raw, err := encodeInput(input)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = m.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: m.taskQueue,
		Memo:      map[string]any{memoKind: kind},
	}, WorkflowName, WorkflowInput{Kind: kind, Input: raw, Timeout: m.activityTimeout})
	if err != nil {
		return "", eris.Wrap(err, "task: start workflow")
	}
	zap.L().Debug("task: workflow started", zap.String("task_id", id), zap.String("kind", kind))
	return id, nil
}

// Get implements Manager.
func (m *TemporalManager) Get(ctx context.Context, id string) (*model.Task, error) {
	resp, err := m.client.DescribeWorkflowExecution(ctx, id, "")
	if err != nil {
		var nf *serviceerror.NotFound
		if errors.As(err, &nf) {
			return nil, eris.Wrapf(ErrNotFound, "task: %s", id)
		}
		return nil, eris.Wrapf(err, "task: describe workflow %s", id)
	}

	info := resp.GetWorkflowExecutionInfo()
	t := &model.Task{ID: id}
	if info.GetStartTime() != nil {
		t.CreatedAt = info.GetStartTime().AsTime()
	}
	t.UpdatedAt = t.CreatedAt
	if info.GetCloseTime() != nil {
		t.UpdatedAt = info.GetCloseTime().AsTime()
	}
	if p, ok := info.GetMemo().GetFields()[memoKind]; ok {
		_ = converter.GetDefaultDataConverter().FromPayload(p, &t.Kind)
	}

	switch info.GetStatus() {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		t.State = m.queryState(ctx, id)
		for _, pa := range resp.GetPendingActivities() {
			var pct int
			if pa.GetHeartbeatDetails() == nil {
				continue
			}
			if err := converter.GetDefaultDataConverter().FromPayloads(pa.GetHeartbeatDetails(), &pct); err == nil {
				t.State = model.TaskProgress
				t.Progress = pct
			}
		}
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		var out json.RawMessage
		if err := m.client.GetWorkflow(ctx, id, "").Get(ctx, &out); err != nil {
			return nil, eris.Wrapf(err, "task: workflow result %s", id)
		}
		t.State = model.TaskSuccess
		t.Result = out
		t.Progress = 100
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		t.State = model.TaskCancelled
	default:
		t.State = model.TaskFailure
		t.Error = m.failureMessage(ctx, id, info.GetStatus())
	}
	return t, nil
}

// Cancel implements Manager.
func (m *TemporalManager) Cancel(ctx context.Context, id string) error {
	err := m.client.CancelWorkflow(ctx, id, "")
	if err == nil {
		return nil
	}
	var nf *serviceerror.NotFound
	if errors.As(err, &nf) {
		return eris.Wrapf(ErrNotFound, "task: %s", id)
	}
	// Already closed workflows cannot be cancelled; that is not an error.
	var closed *serviceerror.FailedPrecondition
	if errors.As(err, &closed) {
		return nil
	}
	return eris.Wrapf(err, "task: cancel workflow %s", id)
}

func (m *TemporalManager) queryState(ctx context.Context, id string) model.TaskState {
	val, err := m.client.QueryWorkflow(ctx, id, "", StateQuery)
	if err != nil {
		return model.TaskPending
	}
	var st model.TaskState
	if err := val.Get(&st); err != nil || st == "" {
		return model.TaskPending
	}
	return st
}

func (m *TemporalManager) failureMessage(ctx context.Context, id string, status enumspb.WorkflowExecutionStatus) string {
	err := m.client.GetWorkflow(ctx, id, "").Get(ctx, nil)
	if err == nil {
		return status.String()
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}
