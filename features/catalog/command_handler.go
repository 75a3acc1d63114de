package catalog

import (
	"context"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/shell"
)

type Remote interface {
	CreateBook(ctx context.Context, book core.Book) (core.Book, error)
	UpdateBook(ctx context.Context, book core.Book) (core.Book, error)
	DeleteBook(ctx context.Context, bookID core.BookIDString) error
	ListBooks(ctx context.Context, query string) ([]core.Book, error)
	ListOwnBooks(ctx context.Context) ([]core.Book, error)
}

// Result is the server's book after the change and what was journaled.
type Result struct {
	Book   core.Book
	Events core.DomainEvents
}

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

func (h CommandHandler) Add(ctx context.Context, command AddCommand) (Result, shell.HandlerResult, error) {
	ctx, observation := h.observability.StartCommand(ctx, command.CommandType(), "")

	result, handlerResult, err := h.write(ctx, command.Book, command.OwnerID, false, command.OccurredAt, h.remote.CreateBook)
	observation.Finish(false, err)

	return result, handlerResult, err
}

func (h CommandHandler) Update(ctx context.Context, command UpdateCommand) (Result, shell.HandlerResult, error) {
	ctx, observation := h.observability.StartCommand(ctx, command.CommandType(), command.Book.ID)

	result, handlerResult, err := h.write(ctx, command.Book, command.OwnerID, true, command.OccurredAt, h.remote.UpdateBook)
	observation.Finish(false, err)

	return result, handlerResult, err
}

func (h CommandHandler) Remove(ctx context.Context, command RemoveCommand) (Result, shell.HandlerResult, error) {
	ctx, observation := h.observability.StartCommand(ctx, command.CommandType(), command.BookID)

	result, handlerResult, err := h.remove(ctx, command)
	observation.Finish(handlerResult.Idempotent, err)

	return result, handlerResult, err
}

func (h CommandHandler) write(
	ctx context.Context,
	book core.Book,
	ownerID core.BorrowerIDString,
	needsID bool,
	occurredAt core.OccurredAtTS,
	send func(context.Context, core.Book) (core.Book, error),
) (Result, shell.HandlerResult, error) {

	if err := ValidateChange(book, ownerID, needsID); err != nil {
		return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	written, err := send(ctx, book)
	if err != nil {
		return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	ctx = journal.WithStrongConsistency(ctx)
	filter := BuildEventFilter(written.ID)

	_, position, err := h.journal.Query(ctx, filter)
	if err != nil {
		return Result{Book: written}, shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	events := core.DomainEvents{core.BuildBookSynced(written, occurredAt)}

	retryMetrics, err := shell.AppendFacts(ctx, h.journal, filter, position, events, shell.NewCommandMetadata(), h.retryOptions...)
	if err != nil {
		return Result{Book: written}, shell.NewErrorResult(retryMetrics), err
	}

	return Result{Book: written, Events: events}, shell.NewSuccessResult(retryMetrics), nil
}

func (h CommandHandler) remove(ctx context.Context, command RemoveCommand) (Result, shell.HandlerResult, error) {
	if command.OwnerID == "" {
		return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), core.ErrUnauthenticated
	}

	if err := h.remote.DeleteBook(ctx, command.BookID); err != nil {
		return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	ctx = journal.WithStrongConsistency(ctx)
	filter := BuildEventFilter(command.BookID)

	history, position, err := shell.QueryHistory(ctx, h.journal, filter)
	if err != nil {
		return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	decision := DecideRemoval(history, command)
	if decision.IsIdempotent() {
		return Result{}, shell.NewIdempotentResult(shell.RetryMetrics{}), nil
	}

	events := core.DomainEvents{decision.Event}

	retryMetrics, err := shell.AppendFacts(ctx, h.journal, filter, position, events, shell.NewCommandMetadata(), h.retryOptions...)
	if err != nil {
		return Result{}, shell.NewErrorResult(retryMetrics), err
	}

	return Result{Events: events}, shell.NewSuccessResult(retryMetrics), nil
}

// List returns the catalog from the server, optionally only the user's own entries.
func (h CommandHandler) List(ctx context.Context, query string, mine bool) ([]core.Book, error) {
	if mine {
		return h.remote.ListOwnBooks(ctx)
	}

	return h.remote.ListBooks(ctx, query)
}
