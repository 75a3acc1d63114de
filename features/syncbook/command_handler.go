package syncbook

import (
	"context"
	"errors"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/shell"
)

type Remote interface {
	FetchBook(ctx context.Context, bookID core.BookIDString) (core.Book, error)
}

// Result holds the server's book (zero when it is gone) and the journaled events.
type Result struct {
	Book   core.Book
	Found  bool
	Events core.DomainEvents
}

// CommandHandler runs remote Fetch -> Query -> Decide -> Append. The whole Query -> Decide ->
// Append part is retried on a concurrency conflict since it only depends on the fetched snapshot.
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
	ctx, observation := h.observability.StartCommand(ctx, commandType, command.BookID)

	result, handlerResult, err := h.handle(ctx, command)
	observation.Finish(handlerResult.Idempotent, err)

	return result, handlerResult, err
}

func (h CommandHandler) handle(ctx context.Context, command Command) (Result, shell.HandlerResult, error) {
	book, err := h.remote.FetchBook(ctx, command.BookID)
	found := err == nil

	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	result := Result{Book: book, Found: found}
	ctx = journal.WithStrongConsistency(ctx)
	filter := BuildEventFilter(command.BookID)

	var idempotent bool

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		history, position, queryErr := shell.QueryHistory(ctx, h.journal, filter)
		if queryErr != nil {
			return queryErr
		}

		decision := Decide(history, command, book, found)
		idempotent = decision.IsIdempotent()

		if !decision.HasEventToAppend() {
			return nil
		}

		entry, mapErr := shell.EntryFrom(decision.Event, shell.NewCommandMetadata())
		if mapErr != nil {
			return mapErr
		}

		if appendErr := h.journal.Append(ctx, filter, position, entry); appendErr != nil {
			return appendErr
		}

		result.Events = core.DomainEvents{decision.Event}

		return nil
	}, h.retryOptions...)

	switch {
	case err != nil:
		return result, shell.NewErrorResult(retryMetrics), err
	case idempotent:
		return result, shell.NewIdempotentResult(retryMetrics), nil
	default:
		return result, shell.NewSuccessResult(retryMetrics), nil
	}
}
