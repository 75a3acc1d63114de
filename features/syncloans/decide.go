package syncloans

import (
	"slices"
	"strings"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/restapi"
)

// FreshBook is the server's answer for a book whose loan vanished. Found is false for a 404.
type FreshBook struct {
	Book  core.Book
	Found bool
}

// Decide returns the events that make the journal agree with the server's loan list.
// No events means the journal already agrees.
func Decide(
	history core.DomainEvents,
	command Command,
	remote []restapi.BorrowedLoan,
	fresh map[core.BookIDString]FreshBook,
) core.DomainEvents {

	var events core.DomainEvents

	local := activeLoans(history, command.BorrowerID)

	for _, borrowed := range remote {
		state := core.ProjectBookState(history, borrowed.Book.ID)

		if !state.Known || state.Removed || state.Book != borrowed.Book {
			events = append(events, core.BuildBookSynced(borrowed.Book, command.OccurredAt))
		}

		if _, ok := local[borrowed.Loan.ID]; !ok {
			events = append(events, core.BuildBookBorrowed(borrowed.Book, borrowed.Loan, command.OccurredAt))
		}
	}

	for _, loan := range StaleLoans(history, command.BorrowerID, remote) {
		state := core.ProjectBookState(history, loan.BookID)
		answer := fresh[loan.BookID]

		if !answer.Found {
			events = append(events, core.BuildBookReturned(state.Book, loan, command.OccurredAt))
			if state.Known && !state.Removed {
				events = append(events, core.BuildBookRemoved(loan.BookID, command.OccurredAt))
			}

			continue
		}

		if !state.Known || state.Book != answer.Book {
			events = append(events, core.BuildBookSynced(answer.Book, command.OccurredAt))
		}

		events = append(events, core.BuildBookReturned(answer.Book, loan, command.OccurredAt))
	}

	return events
}

// StaleLoans are the journal's active loans of the borrower the server does not list.
func StaleLoans(history core.DomainEvents, borrower core.BorrowerIDString, remote []restapi.BorrowedLoan) []core.Loan {
	listed := make(map[core.LoanIDString]struct{}, len(remote))
	for _, borrowed := range remote {
		listed[borrowed.Loan.ID] = struct{}{}
	}

	var stale []core.Loan

	for id, loan := range activeLoans(history, borrower) {
		if _, ok := listed[id]; !ok {
			stale = append(stale, loan)
		}
	}

	slices.SortFunc(stale, func(a, b core.Loan) int { return strings.Compare(a.ID, b.ID) })

	return stale
}

func activeLoans(history core.DomainEvents, borrower core.BorrowerIDString) map[core.LoanIDString]core.Loan {
	loans := make(map[core.LoanIDString]core.Loan)

	for _, event := range history {
		switch e := event.(type) {
		case core.BookBorrowed:
			if e.BorrowerID == borrower {
				loans[e.LoanID] = e.Loan()
			}

		case core.BookReturned:
			delete(loans, e.LoanID)
		}
	}

	return loans
}

// BuildEventFilter selects the borrower's loan events and everything about the listed books.
func BuildEventFilter(borrower core.BorrowerIDString, remote []restapi.BorrowedLoan) journal.Filter {
	loans := journal.BuildFilter().
		Matching().
		AnyKindOf(core.BookBorrowedEventType, core.BookReturnedEventType).
		AndAnyPredicateOf(journal.P("BorrowerID", borrower))

	if len(remote) == 0 {
		return loans.Finalize()
	}

	books := make([]journal.Predicate, 0, len(remote))
	for _, borrowed := range remote {
		books = append(books, journal.P("BookID", borrowed.Book.ID))
	}

	return loans.
		OrMatching().
		AnyKindOf(
			core.BookSyncedEventType,
			core.BookRemovedEventType,
			core.BookBorrowedEventType,
			core.BookReturnedEventType,
		).
		AndAnyPredicateOf(books[0], books[1:]...).
		Finalize()
}
