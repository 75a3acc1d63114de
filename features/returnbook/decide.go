package returnbook

import (
	"errors"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
)

// Decide checks whether the loan can be returned.
//
//	GIVEN: an active loan of the borrower
//	WHEN: ReturnBook is received
//	THEN: a BookReturned event previewing the return (the server's answer replaces it)
//	ERROR: Unauthenticated if there is no borrower
//	ERROR: NotFound if the loan is unknown, already returned or someone else's
func Decide(history core.DomainEvents, command Command) core.DecisionResult {
	if command.BorrowerID == "" {
		return failed(command, core.ErrUnauthenticated)
	}

	s := core.ProjectBookState(history, command.BookID)

	loan, ok := s.ActiveLoans[command.LoanID]
	if !ok || loan.Borrower != command.BorrowerID {
		return failed(command, core.ErrNotFound)
	}

	book, returned, err := core.Return(s.Book, loan, command.OccurredAt)
	if err != nil {
		return failed(command, err)
	}

	return core.SuccessDecision(core.BuildBookReturned(book, returned, command.OccurredAt))
}

func failed(command Command, err error) core.DecisionResult {
	event := core.BuildReturningBookFailed(command.BookID, command.LoanID, command.BorrowerID, err, command.OccurredAt)

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

// BuildLoanFilter finds the BookBorrowed event that opened the loan.
func BuildLoanFilter(loanID core.LoanIDString) journal.Filter {
	return journal.BuildFilter().
		Matching().
		AnyKindOf(core.BookBorrowedEventType).
		AndAllPredicatesOf(journal.P("LoanID", loanID)).
		Finalize()
}
