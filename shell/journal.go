package shell

import (
	"context"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
)

// Journal is what the feature handlers need from a journal engine.
type Journal interface {
	Query(ctx context.Context, filter journal.Filter) (journal.Entries, journal.Position, error)
	Append(ctx context.Context, filter journal.Filter, expected journal.Position, entry journal.Entry, more ...journal.Entry) error
}

// QueryHistory reads the stream selected by filter and maps it to domain events.
func QueryHistory(ctx context.Context, j Journal, filter journal.Filter) (core.DomainEvents, journal.Position, error) {
	entries, position, err := j.Query(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	history, err := DomainEventsFrom(entries)
	if err != nil {
		return nil, 0, err
	}

	return history, position, nil
}

// AppendFacts journals events the server already accepted. Facts stay valid however the stream
// moved, so on a concurrency conflict only the position is re-read before the next attempt.
func AppendFacts(
	ctx context.Context,
	j Journal,
	filter journal.Filter,
	expected journal.Position,
	events core.DomainEvents,
	metadata EventMetadata,
	options ...RetryOption,
) (RetryMetrics, error) {

	if len(events) == 0 {
		return RetryMetrics{LastErrorType: errorTypeNone}, nil
	}

	entries, err := EntriesFrom(events, metadata)
	if err != nil {
		return RetryMetrics{}, err
	}

	first := true

	return RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		if !first {
			_, position, queryErr := j.Query(ctx, filter)
			if queryErr != nil {
				return queryErr
			}

			expected = position
		}

		first = false

		return j.Append(ctx, filter, expected, entries[0], entries[1:]...)
	}, options...)
}
