package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/sales-insight/internal/dataset"
	"github.com/noah-isme/sales-insight/internal/obs"
	"github.com/noah-isme/sales-insight/internal/salesreport"
)

// SourceUpload labels reports computed from a request body rather than the configured source.
const SourceUpload = "upload"

var (
	// ErrNotConfigured is returned when the service has no data source.
	ErrNotConfigured = errors.New("analytics: service not configured")
	// ErrSourceUnavailable wraps failures to load the configured dataset.
	ErrSourceUnavailable = errors.New("analytics: data source unavailable")
	// ErrRunPending is returned by a RunEnqueuer when an identical refresh is already queued.
	ErrRunPending = errors.New("analytics: report run already queued")
)

// Report is one analysis run over a dataset snapshot.
type Report struct {
	RunID       uuid.UUID               `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Source      string                  `json:"source"`
	Strategy    string                  `json:"strategy,omitempty"`
	Fingerprint string                  `json:"fingerprint,omitempty"`
	Cached      bool                    `json:"cached"`
	Stats       salesreport.Stats       `json:"stats"`
	Sellers     []salesreport.ReportRow `json:"sellers"`
}

// Service runs seller reports against a dataset source with optional Redis memoisation.
type Service struct {
	Source      dataset.Source
	Cache       *Cache
	Options     salesreport.Options
	StrategyKey string
	Metrics     *obs.ReportMetrics
	Logger      *zerolog.Logger
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) tracer() trace.Tracer {
	return otel.Tracer("analytics")
}

// Analyze computes a report for data supplied by the caller. The result is not cached.
func (s *Service) Analyze(ctx context.Context, data *salesreport.Dataset) (*Report, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}
	ctx, span := s.tracer().Start(ctx, "analytics.Analyze")
	defer span.End()

	report, err := s.run(ctx, SourceUpload, data, time.Now())
	recordSpanError(span, err)
	return report, err
}

// SellerReport loads the configured source and returns its report, serving a cached
// copy when the same dataset was analysed with the same strategies before.
func (s *Service) SellerReport(ctx context.Context) (*Report, error) {
	return s.load(ctx, "analytics.SellerReport", true)
}

// Refresh recomputes the report from the configured source and overwrites the cache entry.
func (s *Service) Refresh(ctx context.Context) (*Report, error) {
	return s.load(ctx, "analytics.Refresh", false)
}

func (s *Service) load(ctx context.Context, spanName string, useCache bool) (*Report, error) {
	if s == nil || s.Source == nil {
		return nil, ErrNotConfigured
	}
	ctx, span := s.tracer().Start(ctx, spanName)
	defer span.End()

	start := time.Now()
	source := s.Source.Name()
	span.SetAttributes(attribute.String("report.source", source))

	data, err := s.Source.Load(ctx)
	if err != nil {
		result := obs.ResultError
		if salesreport.IsValidationError(err) {
			result = obs.ResultInvalid
		} else {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		s.Metrics.ObserveRun(source, result, time.Since(start))
		recordSpanError(span, err)
		return nil, err
	}

	fingerprint, err := dataset.Fingerprint(data)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	key := CacheKey(s.StrategyKey, fingerprint)

	if useCache && s.Cache != nil {
		var cached Report
		hit, err := s.Cache.GetJSON(ctx, key, &cached)
		switch {
		case err != nil:
			s.Metrics.CacheResult("error")
			s.logger().Warn().Err(err).Str("key", key).Msg("report cache read failed")
		case hit:
			s.Metrics.CacheResult("hit")
			span.SetAttributes(attribute.Bool("report.cached", true))
			cached.Cached = true
			return &cached, nil
		default:
			s.Metrics.CacheResult("miss")
		}
	}

	report, err := s.run(ctx, source, data, start)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	report.Fingerprint = fingerprint
	if err := s.Cache.SetJSON(ctx, key, report); err != nil {
		s.logger().Warn().Err(err).Str("key", key).Msg("report cache write failed")
	}
	return report, nil
}

func (s *Service) run(ctx context.Context, source string, data *salesreport.Dataset, start time.Time) (*Report, error) {
	opts := s.Options
	rows, stats, err := salesreport.AnalyzeWithStats(data, &opts)
	elapsed := time.Since(start)
	if err != nil {
		s.Metrics.ObserveRun(source, obs.ResultInvalid, elapsed)
		s.logger().Warn().Err(err).Str("source", source).Msg("seller report rejected")
		return nil, err
	}
	s.Metrics.ObserveRun(source, obs.ResultOK, elapsed)
	s.Metrics.AddSkipped(stats.SkippedReceipts, stats.SkippedItems)

	report := &Report{
		RunID:       uuid.New(),
		GeneratedAt: s.now().UTC(),
		Source:      source,
		Strategy:    s.StrategyKey,
		Stats:       stats,
		Sellers:     rows,
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("report.run_id", report.RunID.String()),
		attribute.Int("report.sellers", len(rows)),
		attribute.Int("report.receipts", stats.Receipts),
	)

	evt := s.logger().Info()
	if stats.SkippedReceipts > 0 || stats.SkippedItems > 0 {
		evt = s.logger().Warn()
	}
	evt.Str("run_id", report.RunID.String()).
		Str("source", source).
		Int("sellers", len(rows)).
		Int("receipts", stats.Receipts).
		Int("skipped_receipts", stats.SkippedReceipts).
		Int("skipped_items", stats.SkippedItems).
		Int64("duration_ms", elapsed.Milliseconds()).
		Msg("seller report computed")
	return report, nil
}

func (s *Service) logger() *zerolog.Logger {
	if s.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return s.Logger
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
