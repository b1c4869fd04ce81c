package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sales-insight/internal/analytics"
	"github.com/noah-isme/sales-insight/internal/salesreport"
)

// Refresher recomputes and caches the seller report.
type Refresher interface {
	Refresh(ctx context.Context) (*analytics.Report, error)
}

// Worker handles report tasks.
type Worker struct {
	Reports Refresher
	Metrics *Metrics
	Logger  *zerolog.Logger
}

// ProcessRefresh handles TypeReportRefresh. Malformed payloads and datasets that fail
// validation are not retried; source failures are.
func (w Worker) ProcessRefresh(ctx context.Context, t *asynq.Task) error {
	logger := w.logger()
	if w.Reports == nil {
		return fmt.Errorf("queue: refresher not configured: %w", asynq.SkipRetry)
	}
	payload, err := ParseRefreshPayload(t)
	if err != nil {
		w.Metrics.processed(TypeReportRefresh, "rejected")
		logger.Error().Err(err).Msg("discarding malformed refresh task")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	retry, _ := asynq.GetRetryCount(ctx)
	start := time.Now()
	report, err := w.Reports.Refresh(ctx)
	if err != nil {
		evt := logger.Warn().Err(err).Str("task_id", taskID).Int("retry", retry).Str("requested_by", payload.RequestedBy)
		if salesreport.IsValidationError(err) {
			w.Metrics.processed(TypeReportRefresh, "rejected")
			evt.Msg("report refresh rejected by validation")
			return fmt.Errorf("queue: refresh: %w: %w", err, asynq.SkipRetry)
		}
		w.Metrics.processed(TypeReportRefresh, "failed")
		evt.Msg("report refresh failed")
		return fmt.Errorf("queue: refresh: %w", err)
	}

	w.Metrics.processed(TypeReportRefresh, "succeeded")
	logger.Info().
		Str("task_id", taskID).
		Str("run_id", report.RunID.String()).
		Str("requested_by", payload.RequestedBy).
		Int("sellers", len(report.Sellers)).
		Dur("duration", time.Since(start)).
		Msg("report refreshed")
	return nil
}

func (w Worker) logger() *zerolog.Logger {
	if w.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return w.Logger
}

// NewServeMux routes report task types to w.
func NewServeMux(w Worker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReportRefresh, w.ProcessRefresh)
	return mux
}
