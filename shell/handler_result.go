package shell

import (
	"errors"
	"time"
)

// ErrChangeNotJournaled marks a change the server confirmed but the journal did not record. The
// handler result still carries the confirmed events.
var ErrChangeNotJournaled = errors.New("confirmed change could not be journaled")

// HandlerResult is what a command handler reports besides its business result.
type HandlerResult struct {
	// Idempotent is true when nothing had to change.
	Idempotent bool

	RetryAttempts    int
	TotalRetryDelay  time.Duration
	LastErrorType    string
	RetriesExhausted bool
}

func NewSuccessResult(retryMetrics RetryMetrics) HandlerResult {
	return newHandlerResult(false, retryMetrics)
}

func NewIdempotentResult(retryMetrics RetryMetrics) HandlerResult {
	return newHandlerResult(true, retryMetrics)
}

// NewErrorResult keeps the retry metadata of a failed handler call.
func NewErrorResult(retryMetrics RetryMetrics) HandlerResult {
	return newHandlerResult(false, retryMetrics)
}

func newHandlerResult(idempotent bool, retryMetrics RetryMetrics) HandlerResult {
	return HandlerResult{
		Idempotent:       idempotent,
		RetryAttempts:    retryMetrics.Attempts,
		TotalRetryDelay:  retryMetrics.TotalDelay,
		LastErrorType:    retryMetrics.LastErrorType,
		RetriesExhausted: retryMetrics.RetriesExhausted,
	}
}
