package borrowbook

import (
	"context"
	"errors"
	"time"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/shell"
)

// Remote is the part of the REST API client the handler uses.
type Remote interface {
	GetBook(ctx context.Context, bookID core.BookIDString) (core.Book, error)
	FetchBook(ctx context.Context, bookID core.BookIDString) (core.Book, error)
	Borrow(ctx context.Context, bookID core.BookIDString, returnDate time.Time) (core.Book, core.Loan, error)
}

// Result is the authoritative outcome. Events holds what was journaled, failures included, or
// the confirmed events that could not be journaled (shell.ErrChangeNotJournaled).
type Result struct {
	Book   core.Book
	Loan   core.Loan
	Events core.DomainEvents
}

// CommandHandler runs Query -> Decide -> remote Borrow -> Append.
// Only the append is retried on a concurrency conflict, never the remote call.
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

// Handle borrows the book. The returned error carries the core taxonomy.
func (h CommandHandler) Handle(ctx context.Context, command Command) (Result, shell.HandlerResult, error) {
	ctx, observation := h.observability.StartCommand(ctx, commandType, command.BookID)

	result, handlerResult, err := h.handle(ctx, command)
	observation.Finish(handlerResult.Idempotent, err)

	return result, handlerResult, err
}

func (h CommandHandler) handle(ctx context.Context, command Command) (Result, shell.HandlerResult, error) {
	filter := BuildEventFilter(command.BookID)
	ctx = journal.WithStrongConsistency(ctx)

	history, position, err := shell.QueryHistory(ctx, h.journal, filter)
	if err != nil {
		return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	var events core.DomainEvents

	// a book never seen before is fetched so the preconditions can be checked, unless the
	// return date already rules the borrow out
	if command.BorrowerID != "" && !core.ProjectBookState(history, command.BookID).Known {
		if core.DaysBetween(command.ReturnDate, command.Today) < 0 {
			rejected := failed(command, core.ErrInvalidDate)

			return h.journalFailure(ctx, filter, position, Result{}, core.DomainEvents{rejected.Event}, rejected.HasError())
		}

		book, fetchErr := h.remote.GetBook(ctx, command.BookID)
		switch {
		case fetchErr == nil:
			synced := core.BuildBookSynced(book, command.OccurredAt)
			events = append(events, synced)
			history = append(history, synced)
		case !errors.Is(fetchErr, core.ErrNotFound):
			return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), fetchErr
		}
	}

	state := core.ProjectBookState(history, command.BookID)
	decision := Decide(history, command)

	if decision.IsIdempotent() {
		loan, _ := state.ActiveLoanOf(command.BorrowerID)

		return Result{Book: state.Book, Loan: loan}, shell.NewIdempotentResult(shell.RetryMetrics{}), nil
	}

	if decisionErr := decision.HasError(); decisionErr != nil {
		events = append(events, decision.Event)
		book := state.Book

		if errors.Is(decisionErr, core.ErrOutOfStock) {
			book, events = h.resync(ctx, command, state, events)
		}

		return h.journalFailure(ctx, filter, position, Result{Book: book}, events, decisionErr)
	}

	book, loan, remoteErr := h.remote.Borrow(ctx, command.BookID, command.ReturnDate)
	if remoteErr != nil {
		if ctx.Err() != nil {
			return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), remoteErr
		}

		events = append(events, core.BuildBorrowingBookFailed(command.BookID, command.BorrowerID, remoteErr, command.OccurredAt))
		book = state.Book

		switch {
		case errors.Is(remoteErr, core.ErrOutOfStock):
			book, events = h.resync(ctx, command, state, events)
		case errors.Is(remoteErr, core.ErrNotFound) && state.Known && !state.Removed:
			events = append(events, core.BuildBookRemoved(command.BookID, command.OccurredAt))
		}

		return h.journalFailure(ctx, filter, position, Result{Book: book}, events, remoteErr)
	}

	events = append(events, core.BuildBookBorrowed(book, loan, command.OccurredAt))

	retryMetrics, appendErr := shell.AppendFacts(ctx, h.journal, filter, position, events, shell.NewCommandMetadata(), h.retryOptions...)
	if appendErr != nil {
		return Result{Book: book, Loan: loan, Events: events}, shell.NewErrorResult(retryMetrics),
			errors.Join(shell.ErrChangeNotJournaled, appendErr)
	}

	return Result{Book: book, Loan: loan, Events: events}, shell.NewSuccessResult(retryMetrics), nil
}

// resync fetches the authoritative book after an out of stock answer. A failing fetch leaves
// the local state as it is.
func (h CommandHandler) resync(
	ctx context.Context,
	command Command,
	state core.BookState,
	events core.DomainEvents,
) (core.Book, core.DomainEvents) {

	fresh, err := h.remote.FetchBook(ctx, command.BookID)
	if err != nil {
		return state.Book, events
	}

	return fresh, append(events, core.BuildBookSynced(fresh, command.OccurredAt))
}

func (h CommandHandler) journalFailure(
	ctx context.Context,
	filter journal.Filter,
	position journal.Position,
	result Result,
	events core.DomainEvents,
	cause error,
) (Result, shell.HandlerResult, error) {

	retryMetrics, appendErr := shell.AppendFacts(ctx, h.journal, filter, position, events, shell.NewCommandMetadata(), h.retryOptions...)
	if appendErr != nil {
		return result, shell.NewErrorResult(retryMetrics), errors.Join(cause, appendErr)
	}

	result.Events = events

	return result, shell.NewErrorResult(retryMetrics), cause
}
