package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementLen = 300

type ctxSpanKey struct{}

// PGXTracer implements pgx.QueryTracer and pgx.CopyFromTracer, opening a span per
// statement issued by the dataset store.
type PGXTracer struct{}

// TraceQueryStart starts a span for the SQL statement.
func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return startDBSpan(ctx, "pgx.query", statementAttrs(data.SQL)...)
}

// TraceQueryEnd ends the span and records any error.
func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	endDBSpan(ctx, data.CommandTag.RowsAffected(), data.Err)
}

// TraceCopyFromStart starts a span for a COPY FROM into the named table.
func (PGXTracer) TraceCopyFromStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceCopyFromStartData) context.Context {
	return startDBSpan(ctx, "pgx.copy_from",
		attribute.String("db.operation", "COPY"),
		attribute.String("db.sql.table", data.TableName.Sanitize()),
	)
}

// TraceCopyFromEnd ends the COPY span.
func (PGXTracer) TraceCopyFromEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceCopyFromEndData) {
	endDBSpan(ctx, data.CommandTag.RowsAffected(), data.Err)
}

func startDBSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) context.Context {
	ctx, span := otel.Tracer("db.pgx").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("db.system", "postgresql"))
	span.SetAttributes(attrs...)
	return context.WithValue(ctx, ctxSpanKey{}, span)
}

func endDBSpan(ctx context.Context, rows int64, err error) {
	span, ok := ctx.Value(ctxSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", rows))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func statementAttrs(sql string) []attribute.KeyValue {
	trimmed := strings.TrimSpace(sql)
	attrs := []attribute.KeyValue{attribute.String("db.statement", truncateSQL(trimmed))}
	if fields := strings.Fields(trimmed); len(fields) > 0 {
		attrs = append(attrs, attribute.String("db.operation", strings.ToUpper(fields[0])))
	}
	return attrs
}

func truncateSQL(sql string) string {
	if len(sql) > maxStatementLen {
		return sql[:maxStatementLen] + "..."
	}
	return sql
}
