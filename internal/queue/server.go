package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// ServerConfig tunes the asynq worker server.
type ServerConfig struct {
	Queue           string
	Concurrency     int
	ShutdownTimeout time.Duration
}

// NewServer builds an asynq server consuming the configured queue.
func NewServer(redis asynq.RedisConnOpt, cfg ServerConfig, logger zerolog.Logger) *asynq.Server {
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 30 * time.Second
	}
	return asynq.NewServer(redis, asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{queue: 1},
		ShutdownTimeout: shutdown,
		Logger:          Logger{L: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			id, _ := asynq.GetTaskID(ctx)
			logger.Error().Err(err).Str("task_type", task.Type()).Str("task_id", id).Msg("task failed")
		}),
	})
}

// Registrar is the subset of asynq.Scheduler used to register periodic tasks.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// NewScheduler builds an asynq scheduler evaluating cron specs in UTC. With insp set,
// each refresh tick first releases an exclusive refresh that was archived, so a failed
// run does not block the schedule.
func NewScheduler(redis asynq.RedisConnOpt, logger zerolog.Logger, insp TaskInspector, queue string) *asynq.Scheduler {
	opts := &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   Logger{L: logger},
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				logger.Info().Msg("scheduled report refresh skipped, a run is already pending")
				return
			}
			if err != nil {
				logger.Error().Err(err).Msg("enqueue scheduled report refresh")
			}
		},
	}
	if insp != nil {
		opts.PreEnqueueFunc = func(task *asynq.Task, _ []asynq.Option) {
			if task.Type() != TypeReportRefresh {
				return
			}
			released, err := ReleaseExclusive(insp, queue)
			if err != nil {
				logger.Warn().Err(err).Msg("release finished report refresh")
				return
			}
			if released {
				logger.Info().Str("task_id", ExclusiveRefreshID).Msg("released finished report refresh")
			}
		}
	}
	return asynq.NewScheduler(redis, opts)
}

// RegisterRefreshSchedule enqueues a report refresh on every tick of cronspec.
func RegisterRefreshSchedule(s Registrar, cronspec string, opts ...asynq.Option) (string, error) {
	task, err := NewRefreshTask(RefreshPayload{RequestedBy: "scheduler"})
	if err != nil {
		return "", err
	}
	id, err := s.Register(cronspec, task, opts...)
	if err != nil {
		return "", fmt.Errorf("queue: register schedule %q: %w", cronspec, err)
	}
	return id, nil
}

// Logger adapts zerolog to asynq.Logger.
type Logger struct {
	L zerolog.Logger
}

func (l Logger) Debug(args ...any) { l.L.Debug().Msg(fmt.Sprint(args...)) }
func (l Logger) Info(args ...any)  { l.L.Info().Msg(fmt.Sprint(args...)) }
func (l Logger) Warn(args ...any)  { l.L.Warn().Msg(fmt.Sprint(args...)) }
func (l Logger) Error(args ...any) { l.L.Error().Msg(fmt.Sprint(args...)) }
func (l Logger) Fatal(args ...any) { l.L.Fatal().Msg(fmt.Sprint(args...)) }
