package analytics

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/noah-isme/sales-insight/internal/common"
	"github.com/noah-isme/sales-insight/internal/dataset"
	"github.com/noah-isme/sales-insight/internal/export"
	"github.com/noah-isme/sales-insight/internal/salesreport"
)

// MaxUploadBytes caps the dataset accepted by AnalyzeUpload.
const MaxUploadBytes = 32 << 20

// RunEnqueuer schedules an asynchronous report refresh and returns the task id.
type RunEnqueuer interface {
	EnqueueRefresh(ctx context.Context, requestedBy string) (string, error)
}

// Handler exposes seller report endpoints.
type Handler struct {
	Svc   *Service
	Queue RunEnqueuer
}

// Sellers returns the report for the configured data source.
// Query parameters: limit (first N sellers) and format (json or csv).
func (h *Handler) Sellers(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.WriteError(w, classify(ErrNotConfigured))
		return
	}
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	format := q.Get("format")
	if format != "" && format != export.FormatJSON && format != export.FormatCSV {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "format must be json or csv")
		return
	}

	report, err := h.Svc.SellerReport(r.Context())
	if err != nil {
		common.WriteError(w, classify(err))
		return
	}
	if limit > 0 && limit < len(report.Sellers) {
		report.Sellers = report.Sellers[:limit]
	}
	if format == export.FormatCSV {
		w.Header().Set("Content-Type", export.ContentType(format))
		w.Header().Set("Content-Disposition", `attachment; filename="sellers-`+report.RunID.String()+`.csv"`)
		_ = export.WriteCSV(w, report.Sellers)
		return
	}
	common.Data(w, http.StatusOK, report)
}

// AnalyzeUpload computes a report for the dataset in the request body.
func (h *Handler) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.WriteError(w, classify(ErrNotConfigured))
		return
	}
	data, err := dataset.Decode(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		common.WriteError(w, classifyUpload(err))
		return
	}
	report, err := h.Svc.Analyze(r.Context(), data)
	if err != nil {
		common.WriteError(w, classify(err))
		return
	}
	common.Data(w, http.StatusOK, report)
}

// EnqueueRun schedules a background refresh of the cached report.
func (h *Handler) EnqueueRun(w http.ResponseWriter, r *http.Request) {
	if h.Queue == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_DISABLED", "background runs are not configured")
		return
	}
	requestedBy := "api"
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		requestedBy = "api:" + reqID
	}
	taskID, err := h.Queue.EnqueueRefresh(r.Context(), requestedBy)
	if errors.Is(err, ErrRunPending) {
		common.JSONError(w, http.StatusConflict, "RUN_PENDING", "a report run is already queued")
		return
	}
	if err != nil {
		common.JSONError(w, http.StatusServiceUnavailable, "QUEUE_ERROR", "could not schedule report run")
		return
	}
	common.Data(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

var validationCodes = []struct {
	err  error
	code string
}{
	{salesreport.ErrMissingData, "MISSING_DATA"},
	{salesreport.ErrInvalidSellers, "INVALID_SELLERS"},
	{salesreport.ErrInvalidProducts, "INVALID_PRODUCTS"},
	{salesreport.ErrInvalidPurchaseRecords, "INVALID_PURCHASE_RECORDS"},
}

// classify maps service errors onto API error codes.
func classify(err error) *common.AppError {
	for _, vc := range validationCodes {
		if errors.Is(err, vc.err) {
			return common.NewAppError(vc.code, err.Error(), http.StatusBadRequest, err)
		}
	}
	switch {
	case errors.Is(err, salesreport.ErrInvalidOptions), errors.Is(err, salesreport.ErrMissingStrategies):
		return common.NewAppError("INVALID_OPTIONS", "report strategies are misconfigured", http.StatusInternalServerError, err)
	case errors.Is(err, ErrNotConfigured):
		return common.NewAppError("REPORTS_NOT_CONFIGURED", "report service not configured", http.StatusInternalServerError, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return common.NewAppError("TIMEOUT", "report run did not finish in time", http.StatusGatewayTimeout, err)
	case errors.Is(err, ErrSourceUnavailable):
		return common.NewAppError("SOURCE_ERROR", "sales data source unavailable", http.StatusBadGateway, err)
	default:
		return common.NewAppError("REPORT_ERROR", "report run failed", http.StatusInternalServerError, err)
	}
}

// classifyUpload handles decode failures that are not dataset validation errors.
func classifyUpload(err error) *common.AppError {
	if salesreport.IsValidationError(err) {
		return classify(err)
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.NewAppError("PAYLOAD_TOO_LARGE", "dataset exceeds upload limit", http.StatusRequestEntityTooLarge, err)
	}
	return common.NewAppError("BAD_REQUEST", "request body is not a valid dataset document", http.StatusBadRequest, err)
}
