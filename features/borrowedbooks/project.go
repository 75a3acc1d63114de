package borrowedbooks

import (
	"slices"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
)

// ProjectBorrowedBooks lists the borrower's active loans found in loanHistory, with the books
// as bookHistory knows them.
//
//	GIVEN: a borrower with BorrowerID
//	WHEN: BorrowedBooks is executed
//	THEN: every active loan with book and due status, ordered by return date
//	EXCLUDES: returned loans
func ProjectBorrowedBooks(loanHistory, bookHistory core.DomainEvents, query Query) BorrowedBooks {
	active := make(map[core.LoanIDString]core.Loan)

	for _, event := range loanHistory {
		switch e := event.(type) {
		case core.BookBorrowed:
			if e.BorrowerID == query.BorrowerID {
				active[e.LoanID] = e.Loan()
			}

		case core.BookReturned:
			delete(active, e.LoanID)
		}
	}

	loans := make([]core.Loan, 0, len(active))
	for _, loan := range active {
		loans = append(loans, loan)
	}

	slices.SortFunc(loans, core.CompareLoansByReturnDate)

	result := BorrowedBooks{BorrowerID: query.BorrowerID, Books: make([]BorrowedBook, 0, len(loans))}
	states := make(map[core.BookIDString]core.BookState)

	for _, loan := range loans {
		state, ok := states[loan.BookID]
		if !ok {
			state = core.ProjectBookState(bookHistory, loan.BookID)
			states[loan.BookID] = state
		}

		status := core.ClassifyDueStatusWithin(loan, query.Now, query.UrgentWindowDays)

		switch status.Level {
		case core.DueOverdue:
			result.Overdue++
		case core.DueUrgent:
			result.Urgent++
		}

		result.Books = append(result.Books, BorrowedBook{Loan: loan, Book: state.Book, DueStatus: status})
	}

	result.Count = len(result.Books)

	return result
}

// BuildLoanFilter selects the borrower's loan events.
func BuildLoanFilter(borrower core.BorrowerIDString) journal.Filter {
	return journal.BuildFilter().
		Matching().
		AnyKindOf(core.BookBorrowedEventType, core.BookReturnedEventType).
		AndAnyPredicateOf(journal.P("BorrowerID", borrower)).
		Finalize()
}

// BuildBookFilter selects the events of the given books. bookIDs must not be empty.
func BuildBookFilter(bookIDs []core.BookIDString) journal.Filter {
	predicates := make([]journal.Predicate, 0, len(bookIDs))
	for _, id := range bookIDs {
		predicates = append(predicates, journal.P("BookID", id))
	}

	return journal.BuildFilter().
		Matching().
		AnyKindOf(
			core.BookSyncedEventType,
			core.BookRemovedEventType,
			core.BookBorrowedEventType,
			core.BookReturnedEventType,
		).
		AndAnyPredicateOf(predicates[0], predicates[1:]...).
		Finalize()
}
