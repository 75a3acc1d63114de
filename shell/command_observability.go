package shell

import (
	"context"
	"strconv"
	"time"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
)

const (
	CommandDurationMetric = "ledger_command_duration_seconds"
	CommandCallsMetric    = "ledger_command_calls_total"

	StatusSuccess    = "success"
	StatusError      = "error"
	StatusIdempotent = "idempotent"

	LogMsgCommandCompleted = "command completed"
	LogMsgCommandFailed    = "command failed"

	LogAttrCommandType = "command_type"
	LogAttrStatus      = "status"
	LogAttrDurationMS  = "duration_ms"
	LogAttrErrorKind   = "error_kind"
	LogAttrError       = "error"
	LogAttrBookID      = "book_id"

	SpanNameCommand = "ledger.command"
)

// Observability is the optional instrumentation a command handler reports to.
// The zero value observes nothing.
type Observability struct {
	Logger           journal.Logger
	ContextualLogger journal.ContextualLogger
	Metrics          journal.MetricsCollector
	Tracing          journal.TracingCollector
}

// CommandObservation tracks one handler call.
type CommandObservation struct {
	o           Observability
	ctx         context.Context
	span        journal.SpanContext
	commandType string
	bookID      string
	start       time.Time
}

// StartCommand opens the span of a handler call.
func (o Observability) StartCommand(ctx context.Context, commandType string, bookID string) (context.Context, *CommandObservation) {
	observation := &CommandObservation{o: o, commandType: commandType, bookID: bookID, start: time.Now()}

	if o.Tracing != nil {
		ctx, observation.span = o.Tracing.StartSpan(ctx, SpanNameCommand, map[string]string{
			LogAttrCommandType: commandType,
			LogAttrBookID:      bookID,
		})
	}

	observation.ctx = ctx

	return ctx, observation
}

// Finish records the outcome. err is the business or technical error the handler returns.
func (c *CommandObservation) Finish(idempotent bool, err error) {
	duration := time.Since(c.start)

	status := StatusSuccess
	switch {
	case err != nil:
		status = StatusError
	case idempotent:
		status = StatusIdempotent
	}

	labels := map[string]string{LogAttrCommandType: c.commandType, LogAttrStatus: status}
	if err != nil {
		labels[LogAttrErrorKind] = core.ErrorKind(err)
	}

	if c.o.Metrics != nil {
		if contextual, ok := c.o.Metrics.(journal.ContextualMetricsCollector); ok {
			contextual.RecordDurationContext(c.ctx, CommandDurationMetric, duration, labels)
			contextual.IncrementCounterContext(c.ctx, CommandCallsMetric, labels)
		} else {
			c.o.Metrics.RecordDuration(CommandDurationMetric, duration, labels)
			c.o.Metrics.IncrementCounter(CommandCallsMetric, labels)
		}
	}

	if c.o.Tracing != nil && c.span != nil {
		attrs := map[string]string{LogAttrDurationMS: strconv.FormatFloat(ToMilliseconds(duration), 'f', 3, 64)}
		if err != nil {
			attrs[LogAttrError] = err.Error()
		}

		c.o.Tracing.FinishSpan(c.span, status, attrs)
	}

	args := []any{
		LogAttrCommandType, c.commandType,
		LogAttrBookID, c.bookID,
		LogAttrStatus, status,
		LogAttrDurationMS, ToMilliseconds(duration),
	}

	if err != nil {
		args = append(args, LogAttrErrorKind, core.ErrorKind(err), LogAttrError, err.Error())
		c.log(LogMsgCommandFailed, true, args...)

		return
	}

	c.log(LogMsgCommandCompleted, false, args...)
}

func (c *CommandObservation) log(msg string, warn bool, args ...any) {
	switch {
	case c.o.ContextualLogger != nil && warn:
		c.o.ContextualLogger.WarnContext(c.ctx, msg, args...)
	case c.o.ContextualLogger != nil:
		c.o.ContextualLogger.InfoContext(c.ctx, msg, args...)
	case c.o.Logger != nil && warn:
		c.o.Logger.Warn(msg, args...)
	case c.o.Logger != nil:
		c.o.Logger.Info(msg, args...)
	}
}

// ToMilliseconds converts d to fractional milliseconds.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
