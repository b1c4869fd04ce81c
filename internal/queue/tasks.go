package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/sales-insight/internal/analytics"
)

const (
	// TypeReportRefresh recomputes the seller report from the configured source.
	TypeReportRefresh = "report:sellers:refresh"
	// DefaultQueue is used when no queue name is configured.
	DefaultQueue = "reports"
	// ExclusiveRefreshID is the task id shared by refreshes when only one may be pending.
	ExclusiveRefreshID = "report-sellers-refresh"
)

// RefreshPayload describes who asked for a report refresh.
type RefreshPayload struct {
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRefreshTask encodes payload into a report refresh task.
func NewRefreshTask(payload RefreshPayload, opts ...asynq.Option) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("queue: encode refresh payload: %w", err)
	}
	return asynq.NewTask(TypeReportRefresh, raw, opts...), nil
}

// ParseRefreshPayload decodes the payload of a refresh task. An empty payload is
// accepted so scheduler-created tasks need no body.
func ParseRefreshPayload(t *asynq.Task) (RefreshPayload, error) {
	var payload RefreshPayload
	if t == nil {
		return payload, errors.New("queue: nil task")
	}
	if t.Type() != TypeReportRefresh {
		return payload, fmt.Errorf("queue: unexpected task type %q", t.Type())
	}
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("queue: decode refresh payload: %w", err)
	}
	return payload, nil
}

// TaskClient is the subset of asynq.Client used to enqueue tasks.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer publishes report refresh tasks.
type Enqueuer struct {
	Client   TaskClient
	Queue    string
	MaxRetry int
	Timeout  time.Duration
	Metrics  *Metrics
	Now      func() time.Time

	// Exclusive keeps at most one refresh pending by giving every refresh the same task id.
	Exclusive bool
	// Inspector clears an archived or completed exclusive refresh whose id blocks a new one.
	Inspector TaskInspector
}

func (e Enqueuer) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// EnqueueRefresh schedules a refresh and returns the asynq task id.
// With Exclusive set, a refresh that is still pending yields analytics.ErrRunPending.
// An archived or completed refresh holding the id is deleted through Inspector first.
func (e Enqueuer) EnqueueRefresh(ctx context.Context, requestedBy string) (string, error) {
	if e.Client == nil {
		return "", errors.New("queue: task client not configured")
	}
	task, err := NewRefreshTask(RefreshPayload{RequestedBy: requestedBy, RequestedAt: e.now().UTC()})
	if err != nil {
		return "", err
	}
	info, err := e.Client.EnqueueContext(ctx, task, e.options()...)
	if errors.Is(err, asynq.ErrTaskIDConflict) && e.Exclusive && e.Inspector != nil {
		released, relErr := ReleaseExclusive(e.Inspector, e.Queue)
		if relErr != nil {
			e.Metrics.enqueued(TypeReportRefresh, "error")
			return "", relErr
		}
		if released {
			info, err = e.Client.EnqueueContext(ctx, task, e.options()...)
		}
	}
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
			e.Metrics.enqueued(TypeReportRefresh, "duplicate")
			return "", fmt.Errorf("%w: %w", analytics.ErrRunPending, err)
		}
		e.Metrics.enqueued(TypeReportRefresh, "error")
		return "", fmt.Errorf("queue: enqueue %s: %w", TypeReportRefresh, err)
	}
	e.Metrics.enqueued(TypeReportRefresh, "ok")
	return info.ID, nil
}

func (e Enqueuer) options() []asynq.Option {
	return TaskOptions(e.Queue, e.MaxRetry, e.Timeout, e.Exclusive)
}

// TaskOptions builds the asynq options shared by API-enqueued and scheduled refreshes.
func TaskOptions(queue string, maxRetry int, timeout time.Duration, exclusive bool) []asynq.Option {
	if queue == "" {
		queue = DefaultQueue
	}
	opts := []asynq.Option{asynq.Queue(queue)}
	if maxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(maxRetry))
	}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	if exclusive {
		opts = append(opts, asynq.TaskID(ExclusiveRefreshID))
	}
	return opts
}

// TaskInspector is the subset of asynq.Inspector used to release the exclusive refresh id.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

// ReleaseExclusive deletes the exclusive refresh task once it can no longer run:
// archived after exhausting retries or a skip-retry failure, or completed and retained.
// Pending, scheduled, retrying and active tasks are left alone. It reports whether a
// task was deleted.
func ReleaseExclusive(insp TaskInspector, queue string) (bool, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	info, err := insp.GetTaskInfo(queue, ExclusiveRefreshID)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("queue: inspect %s: %w", ExclusiveRefreshID, err)
	}
	if info.State != asynq.TaskStateArchived && info.State != asynq.TaskStateCompleted {
		return false, nil
	}
	if err := insp.DeleteTask(queue, ExclusiveRefreshID); err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("queue: release %s: %w", ExclusiveRefreshID, err)
	}
	return true, nil
}
