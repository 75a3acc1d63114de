package borrowedbooks

import (
	"context"
	"errors"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/shell"
)

// EventStore is the read side of the journal.
type EventStore interface {
	Query(ctx context.Context, filter journal.Filter) (journal.Entries, journal.Position, error)
}

// QueryHandler runs Query -> Project on an eventually consistent read.
type QueryHandler struct {
	journal       EventStore
	observability shell.Observability
}

type Option func(*QueryHandler)

func WithObservability(o shell.Observability) Option {
	return func(h *QueryHandler) {
		h.observability = o
	}
}

func NewQueryHandler(j EventStore, opts ...Option) QueryHandler {
	handler := QueryHandler{journal: j}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

func (h QueryHandler) Handle(ctx context.Context, query Query) (BorrowedBooks, error) {
	ctx, observation := h.observability.StartCommand(ctx, queryType, "")

	result, err := h.handle(ctx, query)
	observation.Finish(false, err)

	return result, err
}

func (h QueryHandler) handle(ctx context.Context, query Query) (BorrowedBooks, error) {
	if query.BorrowerID == "" {
		return BorrowedBooks{}, core.ErrUnauthenticated
	}

	if query.UrgentWindowDays < 0 {
		return BorrowedBooks{}, errors.New("urgent window must not be negative")
	}

	ctx = journal.WithEventualConsistency(ctx)

	loanHistory, err := h.history(ctx, BuildLoanFilter(query.BorrowerID))
	if err != nil {
		return BorrowedBooks{}, err
	}

	bookIDs := make([]core.BookIDString, 0)
	for _, event := range loanHistory {
		if borrowed, ok := event.(core.BookBorrowed); ok {
			bookIDs = append(bookIDs, borrowed.BookID)
		}
	}

	if len(bookIDs) == 0 {
		return ProjectBorrowedBooks(nil, nil, query), nil
	}

	bookHistory, err := h.history(ctx, BuildBookFilter(bookIDs))
	if err != nil {
		return BorrowedBooks{}, err
	}

	return ProjectBorrowedBooks(loanHistory, bookHistory, query), nil
}

func (h QueryHandler) history(ctx context.Context, filter journal.Filter) (core.DomainEvents, error) {
	entries, _, err := h.journal.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	return shell.DomainEventsFrom(entries)
}
