package borrowbook

import (
	"errors"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
)

// Decide checks whether the borrower may borrow the book, given the book's history.
//
//	GIVEN: a book known from the journal
//	WHEN: BorrowBook is received
//	THEN: a BookBorrowed event previewing the loan (the server's answer replaces it)
//	ERROR: Unauthenticated if there is no borrower
//	ERROR: NotFound if the book is unknown or was removed
//	ERROR: InvalidDate if the return date lies before today
//	ERROR: OutOfStock if no copy is available
//	IDEMPOTENCY: the borrower already holds an active loan of the book
func Decide(history core.DomainEvents, command Command) core.DecisionResult {
	s := core.ProjectBookState(history, command.BookID)

	if command.BorrowerID != "" {
		if _, ok := s.ActiveLoanOf(command.BorrowerID); ok {
			return core.IdempotentDecision()
		}
	}

	if command.BorrowerID != "" && (!s.Known || s.Removed) {
		return failed(command, core.ErrNotFound)
	}

	book, loan, err := core.Borrow(s.Book, "", command.BorrowerID, command.ReturnDate, command.Today)
	if err != nil {
		return failed(command, err)
	}

	return core.SuccessDecision(core.BuildBookBorrowed(book, loan, command.OccurredAt))
}

// CanBorrow tells whether the borrow action should be offered for the book.
func CanBorrow(history core.DomainEvents, bookID core.BookIDString, borrower core.BorrowerIDString, authenticated bool) bool {
	s := core.ProjectBookState(history, bookID)
	if !s.Known || s.Removed {
		return false
	}

	_, hasActiveLoan := s.ActiveLoanOf(borrower)

	return core.CanBorrow(s.Book, hasActiveLoan, authenticated && borrower != "")
}

func failed(command Command, err error) core.DecisionResult {
	event := core.BuildBorrowingBookFailed(command.BookID, command.BorrowerID, err, command.OccurredAt)

	return core.ErrorDecision(event, errors.Join(err, errors.New(event.EventType()+": "+event.Reason)))
}

// BuildEventFilter selects every event that changes the state of the book.
func BuildEventFilter(bookID core.BookIDString) journal.Filter {
	return journal.BuildFilter().
		Matching().
		AnyKindOf(
			core.BookSyncedEventType,
			core.BookRemovedEventType,
			core.BookBorrowedEventType,
			core.BookReturnedEventType,
		).
		AndAnyPredicateOf(journal.P("BookID", bookID)).
		Finalize()
}
