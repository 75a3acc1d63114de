package sqlengine

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/bookverse/borrowledger/journal"
)

const (
	operationQuery  = "query"
	operationAppend = "append"

	spanNameQuery  = "journal.query"
	spanNameAppend = "journal.append"

	spanAttrOperation  = "operation"
	spanAttrDBSystem   = "db.system"
	spanAttrTable      = "journal.table"
	spanAttrEntryCount = "entry_count"
	spanAttrPosition   = "position"
	spanAttrDurationMS = "duration_ms"
	spanAttrErrorType  = "error_type"

	statusSuccess  = "success"
	statusError    = "error"
	statusConflict = "concurrency_conflict"

	metricQueryDuration       = "journal_query_duration_seconds"
	metricAppendDuration      = "journal_append_duration_seconds"
	metricEntriesQueried      = "journal_entries_queried_total"
	metricEntriesAppended     = "journal_entries_appended_total"
	metricConcurrencyConflict = "journal_concurrency_conflicts_total"
	metricDatabaseErrors      = "journal_database_errors_total"

	errorTypeBuildQuery    = "build_query"
	errorTypeDatabaseQuery = "database_query"
	errorTypeDatabaseExec  = "database_exec"
	errorTypeRowScan       = "row_scan"
	errorTypeRowsAffected  = "rows_affected"
)

// observation bundles span, metrics and timing of one journal operation.
type observation struct {
	engine    Engine
	ctx       context.Context
	span      journal.SpanContext
	operation string
	start     time.Time
}

func (e Engine) startObservation(ctx context.Context, operation string) (context.Context, *observation) {
	obs := &observation{engine: e, operation: operation, start: time.Now()}

	if e.settings.Tracing != nil {
		spanName := spanNameQuery
		if operation == operationAppend {
			spanName = spanNameAppend
		}

		ctx, obs.span = e.settings.Tracing.StartSpan(ctx, spanName, map[string]string{
			spanAttrOperation: operation,
			spanAttrDBSystem:  e.name,
			spanAttrTable:     e.settings.TableName,
		})
	}

	obs.ctx = ctx

	return ctx, obs
}

func (o *observation) finishQuerySuccess(entryCount int, position journal.Position) {
	duration := time.Since(o.start)
	o.engine.recordDuration(o.ctx, metricQueryDuration, duration, o.operation, statusSuccess)
	o.engine.recordValue(o.ctx, metricEntriesQueried, float64(entryCount), o.operation, statusSuccess)
	o.finishSpan(statusSuccess, map[string]string{
		spanAttrEntryCount: strconv.Itoa(entryCount),
		spanAttrPosition:   strconv.FormatUint(uint64(position), 10),
		spanAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 3, 64),
	})
}

func (o *observation) finishAppendSuccess(entryCount int) {
	duration := time.Since(o.start)
	o.engine.recordDuration(o.ctx, metricAppendDuration, duration, o.operation, statusSuccess)
	o.engine.recordValue(o.ctx, metricEntriesAppended, float64(entryCount), o.operation, statusSuccess)
	o.finishSpan(statusSuccess, map[string]string{
		spanAttrEntryCount: strconv.Itoa(entryCount),
		spanAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 3, 64),
	})
}

func (o *observation) finishConflict() {
	o.engine.recordDuration(o.ctx, metricAppendDuration, time.Since(o.start), o.operation, statusConflict)
	o.engine.incrementCounter(o.ctx, metricConcurrencyConflict, map[string]string{spanAttrOperation: o.operation})
	o.finishSpan(statusConflict, nil)
}

func (o *observation) finishError(errorType string) {
	metric := metricQueryDuration
	if o.operation == operationAppend {
		metric = metricAppendDuration
	}

	o.engine.recordDuration(o.ctx, metric, time.Since(o.start), o.operation, statusError)
	o.engine.incrementCounter(o.ctx, metricDatabaseErrors, map[string]string{
		spanAttrOperation: o.operation,
		spanAttrErrorType: errorType,
	})
	o.finishSpan(statusError, map[string]string{spanAttrErrorType: errorType})
}

func (o *observation) finishSpan(status string, attrs map[string]string) {
	if o.engine.settings.Tracing != nil && o.span != nil {
		o.engine.settings.Tracing.FinishSpan(o.span, status, attrs)
	}
}

func (e Engine) recordDuration(ctx context.Context, metric string, duration time.Duration, operation, status string) {
	if e.settings.Metrics == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, "status": status}

	if contextual, ok := e.settings.Metrics.(journal.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	e.settings.Metrics.RecordDuration(metric, duration, labels)
}

func (e Engine) recordValue(ctx context.Context, metric string, value float64, operation, status string) {
	if e.settings.Metrics == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, "status": status}

	if contextual, ok := e.settings.Metrics.(journal.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	e.settings.Metrics.RecordValue(metric, value, labels)
}

func (e Engine) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if e.settings.Metrics == nil {
		return
	}

	if contextual, ok := e.settings.Metrics.(journal.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	e.settings.Metrics.IncrementCounter(metric, labels)
}

// logQueryWithDuration logs SQL at debug level.
func (e Engine) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	switch {
	case e.settings.ContextualLogger != nil:
		e.settings.ContextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	case e.settings.Logger != nil:
		e.settings.Logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operation summaries at info level.
func (e Engine) logOperation(ctx context.Context, action string, args ...any) {
	switch {
	case e.settings.ContextualLogger != nil:
		e.settings.ContextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	case e.settings.Logger != nil:
		e.settings.Logger.Info(logMsgOperation+action, args...)
	}
}

func (e Engine) logWarn(ctx context.Context, msg string, args ...any) {
	switch {
	case e.settings.ContextualLogger != nil:
		e.settings.ContextualLogger.WarnContext(ctx, msg, args...)
	case e.settings.Logger != nil:
		e.settings.Logger.Warn(msg, args...)
	}
}

func (e Engine) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case e.settings.ContextualLogger != nil:
		e.settings.ContextualLogger.ErrorContext(ctx, msg, allArgs...)
	case e.settings.Logger != nil:
		e.settings.Logger.Error(msg, allArgs...)
	}
}

// toMilliseconds converts d to milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
