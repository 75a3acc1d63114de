package syncloans

import (
	"context"
	"errors"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/restapi"
	"github.com/bookverse/borrowledger/shell"
)

type Remote interface {
	Borrowed(ctx context.Context) ([]restapi.BorrowedLoan, error)
	FetchBook(ctx context.Context, bookID core.BookIDString) (core.Book, error)
}

// Result holds the server's loan list and the journaled events.
type Result struct {
	Loans  []restapi.BorrowedLoan
	Events core.DomainEvents
}

// CommandHandler runs remote Borrowed -> Query -> Decide -> Append, retrying everything after
// the remote list on a concurrency conflict.
type CommandHandler struct {
	journal       shell.Journal
	remote        Remote
	retryOptions  []shell.RetryOption
	observability shell.Observability
}

type Option func(*CommandHandler)

func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

func WithObservability(o shell.Observability) Option {
	return func(h *CommandHandler) {
		h.observability = o
	}
}

func NewCommandHandler(j shell.Journal, remote Remote, opts ...Option) CommandHandler {
	handler := CommandHandler{
		journal: j,
		remote:  remote,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

func (h CommandHandler) Handle(ctx context.Context, command Command) (Result, shell.HandlerResult, error) {
	ctx, observation := h.observability.StartCommand(ctx, commandType, "")

	result, handlerResult, err := h.handle(ctx, command)
	observation.Finish(handlerResult.Idempotent, err)

	return result, handlerResult, err
}

func (h CommandHandler) handle(ctx context.Context, command Command) (Result, shell.HandlerResult, error) {
	if command.BorrowerID == "" {
		return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), core.ErrUnauthenticated
	}

	remote, err := h.remote.Borrowed(ctx)
	if err != nil {
		return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	result := Result{Loans: remote}
	ctx = journal.WithStrongConsistency(ctx)
	filter := BuildEventFilter(command.BorrowerID, remote)
	fresh := make(map[core.BookIDString]FreshBook)

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		history, position, queryErr := shell.QueryHistory(ctx, h.journal, filter)
		if queryErr != nil {
			return queryErr
		}

		for _, loan := range StaleLoans(history, command.BorrowerID, remote) {
			if _, done := fresh[loan.BookID]; done {
				continue
			}

			book, fetchErr := h.remote.FetchBook(ctx, loan.BookID)
			switch {
			case fetchErr == nil:
				fresh[loan.BookID] = FreshBook{Book: book, Found: true}
			case errors.Is(fetchErr, core.ErrNotFound):
				fresh[loan.BookID] = FreshBook{}
			default:
				return fetchErr
			}
		}

		events := Decide(history, command, remote, fresh)
		if len(events) == 0 {
			return nil
		}

		entries, mapErr := shell.EntriesFrom(events, shell.NewCommandMetadata())
		if mapErr != nil {
			return mapErr
		}

		if appendErr := h.journal.Append(ctx, filter, position, entries[0], entries[1:]...); appendErr != nil {
			return appendErr
		}

		result.Events = events

		return nil
	}, h.retryOptions...)

	switch {
	case err != nil:
		return result, shell.NewErrorResult(retryMetrics), err
	case len(result.Events) == 0:
		return result, shell.NewIdempotentResult(retryMetrics), nil
	default:
		return result, shell.NewSuccessResult(retryMetrics), nil
	}
}
