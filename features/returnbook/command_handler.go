package returnbook

import (
	"context"
	"errors"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/shell"
)

// Remote is the part of the REST API client the handler uses.
type Remote interface {
	FetchBook(ctx context.Context, bookID core.BookIDString) (core.Book, error)
	Return(ctx context.Context, loanID core.LoanIDString) (core.Book, core.Loan, error)
}

// Result is the authoritative outcome. Events holds what was journaled, failures included, or
// the confirmed events that could not be journaled (shell.ErrChangeNotJournaled).
type Result struct {
	Book   core.Book
	Loan   core.Loan
	Events core.DomainEvents
}

// CommandHandler runs Query -> Decide -> remote Return -> Append.
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

func (h CommandHandler) Handle(ctx context.Context, command Command) (Result, shell.HandlerResult, error) {
	ctx, observation := h.observability.StartCommand(ctx, commandType, command.BookID)

	result, handlerResult, err := h.handle(ctx, command)
	observation.Finish(handlerResult.Idempotent, err)

	return result, handlerResult, err
}

func (h CommandHandler) handle(ctx context.Context, command Command) (Result, shell.HandlerResult, error) {
	ctx = journal.WithStrongConsistency(ctx)

	if command.BookID == "" {
		bookID, err := h.bookOfLoan(ctx, command.LoanID)
		if err != nil {
			return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), err
		}

		command.BookID = bookID
	}

	filter := BuildEventFilter(command.BookID)

	history, position, err := shell.QueryHistory(ctx, h.journal, filter)
	if err != nil {
		return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	state := core.ProjectBookState(history, command.BookID)
	decision := Decide(history, command)

	if decisionErr := decision.HasError(); decisionErr != nil {
		return h.journalFailure(ctx, filter, position, Result{Book: state.Book}, core.DomainEvents{decision.Event}, decisionErr)
	}

	book, loan, remoteErr := h.remote.Return(ctx, command.LoanID)
	if remoteErr != nil {
		if ctx.Err() != nil {
			return Result{}, shell.NewErrorResult(shell.RetryMetrics{}), remoteErr
		}

		events := core.DomainEvents{
			core.BuildReturningBookFailed(command.BookID, command.LoanID, command.BorrowerID, remoteErr, command.OccurredAt),
		}
		book = state.Book

		// the server no longer knows the loan: it was returned elsewhere
		if errors.Is(remoteErr, core.ErrNotFound) {
			if fresh, fetchErr := h.remote.FetchBook(ctx, command.BookID); fetchErr == nil {
				book = fresh
				stale := state.ActiveLoans[command.LoanID]
				events = append(events,
					core.BuildBookSynced(fresh, command.OccurredAt),
					core.BuildBookReturned(fresh, stale, command.OccurredAt),
				)
			}
		}

		return h.journalFailure(ctx, filter, position, Result{Book: book}, events, remoteErr)
	}

	events := core.DomainEvents{core.BuildBookReturned(book, loan, command.OccurredAt)}

	retryMetrics, appendErr := shell.AppendFacts(ctx, h.journal, filter, position, events, shell.NewCommandMetadata(), h.retryOptions...)
	if appendErr != nil {
		return Result{Book: book, Loan: loan, Events: events}, shell.NewErrorResult(retryMetrics),
			errors.Join(shell.ErrChangeNotJournaled, appendErr)
	}

	return Result{Book: book, Loan: loan, Events: events}, shell.NewSuccessResult(retryMetrics), nil
}

func (h CommandHandler) bookOfLoan(ctx context.Context, loanID core.LoanIDString) (core.BookIDString, error) {
	history, _, err := shell.QueryHistory(ctx, h.journal, BuildLoanFilter(loanID))
	if err != nil {
		return "", err
	}

	for _, event := range history {
		if borrowed, ok := event.(core.BookBorrowed); ok {
			return borrowed.BookID, nil
		}
	}

	return "", errors.Join(core.ErrNotFound, errors.New("no loan "+loanID+" in the journal"))
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
