package shell

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/bookverse/borrowledger/journal"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3

	RetryAttemptsMetric      = "ledger_append_retries_total"
	RetryDelayMetric         = "ledger_append_retry_delay_seconds"
	RetriesExhaustedMetric   = "ledger_append_retries_exhausted_total"
	errorTypeNone            = "none"
	errorTypeConflict        = "concurrency_conflict"
	errorTypeContextCanceled = "context_canceled"
	errorTypeDeadline        = "context_deadline_exceeded"
	errorTypeOther           = "other"
)

var (
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")
	ErrEmptyCommandType    = errors.New("command type must not be empty")
	ErrInvalidMaxAttempts  = errors.New("max attempts must be positive")
	ErrNegativeBaseDelay   = errors.New("base delay must not be negative")
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc is retried by RetryWithExponentialBackoff.
type RetryableFunc func(ctx context.Context) error

// RetryMetrics describes how a retried call went.
type RetryMetrics struct {
	Attempts         int
	TotalDelay       time.Duration
	LastErrorType    string
	RetriesExhausted bool
}

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	metrics      journal.MetricsCollector
	commandType  string
}

// RetryWithExponentialBackoff re-runs fn while it fails with journal.ErrConcurrencyConflict,
// waiting baseDelay * 2^(attempt-1) plus jitter between attempts. Every other error, including
// every error of a remote call, is returned at once: user actions are never repeated.
func RetryWithExponentialBackoff(ctx context.Context, fn RetryableFunc, options ...RetryOption) (RetryMetrics, error) {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return RetryMetrics{}, err
		}
	}

	metrics := RetryMetrics{LastErrorType: errorTypeNone}

	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := config.baseDelay * time.Duration(1<<(attempt-1))
			backoff := delay + time.Duration(rand.Float64()*float64(delay)*config.jitterFactor) //nolint:gosec
			config.recordDelay(ctx, attempt, backoff)

			select {
			case <-time.After(backoff):
				metrics.TotalDelay += backoff
			case <-ctx.Done():
				metrics.LastErrorType = errorType(ctx.Err())
				return metrics, ctx.Err()
			}
		}

		metrics.Attempts++

		lastErr = fn(ctx)
		if lastErr == nil {
			metrics.LastErrorType = errorTypeNone
			return metrics, nil
		}

		metrics.LastErrorType = errorType(lastErr)

		if !errors.Is(lastErr, journal.ErrConcurrencyConflict) {
			return metrics, lastErr
		}

		if attempt < config.maxAttempts-1 {
			config.increment(ctx, RetryAttemptsMetric, map[string]string{
				LogAttrCommandType: config.commandType,
				"attempt_number":   strconv.Itoa(attempt + 1),
				"error_type":       metrics.LastErrorType,
			})
		}
	}

	metrics.RetriesExhausted = true
	config.increment(ctx, RetriesExhaustedMetric, map[string]string{
		LogAttrCommandType: config.commandType,
		"final_error_type": metrics.LastErrorType,
	})

	return metrics, lastErr
}

func (c *retryConfig) recordDelay(ctx context.Context, attempt int, delay time.Duration) {
	if c.metrics == nil {
		return
	}

	labels := map[string]string{LogAttrCommandType: c.commandType, "attempt_number": strconv.Itoa(attempt)}

	if contextual, ok := c.metrics.(journal.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, RetryDelayMetric, delay, labels)
		return
	}

	c.metrics.RecordDuration(RetryDelayMetric, delay, labels)
}

func (c *retryConfig) increment(ctx context.Context, metric string, labels map[string]string) {
	if c.metrics == nil {
		return
	}

	if contextual, ok := c.metrics.(journal.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	c.metrics.IncrementCounter(metric, labels)
}

func errorType(err error) string {
	switch {
	case err == nil:
		return errorTypeNone
	case errors.Is(err, journal.ErrConcurrencyConflict):
		return errorTypeConflict
	case errors.Is(err, context.Canceled):
		return errorTypeContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeDeadline
	default:
		return errorTypeOther
	}
}

// RetryOption configures RetryWithExponentialBackoff.
type RetryOption func(*retryConfig) error

func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the first backoff delay. Later ones double.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor adds up to factor * delay of random jitter, 0.0 to 1.0.
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithRetryMetrics records retries labelled with commandType.
func WithRetryMetrics(collector journal.MetricsCollector, commandType string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if commandType == "" {
			return ErrEmptyCommandType
		}

		config.metrics = collector
		config.commandType = commandType

		return nil
	}
}
