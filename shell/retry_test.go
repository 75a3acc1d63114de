package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
)

func Test_RetryWithExponentialBackoff_Success_NoRetries(t *testing.T) {
	callCount := 0

	meta, err := RetryWithExponentialBackoff(t.Context(), func(_ context.Context) error {
		callCount++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, 1, meta.Attempts)
	assert.Equal(t, time.Duration(0), meta.TotalDelay)
	assert.Equal(t, "none", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_RetryOnConcurrencyConflict(t *testing.T) {
	callCount := 0

	meta, err := RetryWithExponentialBackoff(t.Context(), func(_ context.Context) error {
		callCount++
		if callCount < 3 {
			return journal.ErrConcurrencyConflict
		}
		return nil
	}, WithBaseDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
	assert.Equal(t, 3, meta.Attempts)
	assert.Greater(t, meta.TotalDelay, time.Duration(0))
	assert.Equal(t, "none", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_Does_Not_Retry_Remote_Errors(t *testing.T) {
	callCount := 0

	meta, err := RetryWithExponentialBackoff(t.Context(), func(_ context.Context) error {
		callCount++
		return errors.Join(core.ErrNetwork, errors.New("connection refused"))
	})

	assert.ErrorIs(t, err, core.ErrNetwork)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, "other", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_Exhausts_Attempts(t *testing.T) {
	metrics := &countingMetrics{}

	meta, err := RetryWithExponentialBackoff(
		t.Context(),
		func(_ context.Context) error { return journal.ErrConcurrencyConflict },
		WithMaxAttempts(3),
		WithBaseDelay(0),
		WithJitterFactor(0),
		WithRetryMetrics(metrics, "BorrowBook"),
	)

	assert.ErrorIs(t, err, journal.ErrConcurrencyConflict)
	assert.Equal(t, 3, meta.Attempts)
	assert.True(t, meta.RetriesExhausted)
	assert.Equal(t, "concurrency_conflict", meta.LastErrorType)
	assert.Equal(t, 2, metrics.counters[RetryAttemptsMetric])
	assert.Equal(t, 1, metrics.counters[RetriesExhaustedMetric])
}

func Test_RetryWithExponentialBackoff_Stops_On_Canceled_Context(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	meta, err := RetryWithExponentialBackoff(
		ctx,
		func(_ context.Context) error { return journal.ErrConcurrencyConflict },
		WithBaseDelay(time.Second),
	)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, meta.Attempts)
}

func Test_RetryWithExponentialBackoff_InvalidOptions(t *testing.T) {
	fn := func(_ context.Context) error { return nil }

	_, err := RetryWithExponentialBackoff(t.Context(), fn, WithMaxAttempts(0))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	_, err = RetryWithExponentialBackoff(t.Context(), fn, WithBaseDelay(-time.Millisecond))
	assert.ErrorIs(t, err, ErrNegativeBaseDelay)

	_, err = RetryWithExponentialBackoff(t.Context(), fn, WithJitterFactor(1.5))
	assert.ErrorIs(t, err, ErrInvalidJitterFactor)

	_, err = RetryWithExponentialBackoff(t.Context(), fn, WithRetryMetrics(nil, "BorrowBook"))
	assert.ErrorIs(t, err, ErrNilMetricsCollector)

	_, err = RetryWithExponentialBackoff(t.Context(), fn, WithRetryMetrics(&countingMetrics{}, ""))
	assert.ErrorIs(t, err, ErrEmptyCommandType)
}

type countingMetrics struct {
	counters  map[string]int
	durations map[string]int
}

func (m *countingMetrics) RecordDuration(metric string, _ time.Duration, _ map[string]string) {
	if m.durations == nil {
		m.durations = map[string]int{}
	}
	m.durations[metric]++
}

func (m *countingMetrics) IncrementCounter(metric string, _ map[string]string) {
	if m.counters == nil {
		m.counters = map[string]int{}
	}
	m.counters[metric]++
}

func (m *countingMetrics) RecordValue(string, float64, map[string]string) {}
