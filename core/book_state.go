package core

import (
	"cmp"
	"slices"
)

// BookState is a book as the journal knows it, together with its active loans.
type BookState struct {
	Book        Book
	Known       bool
	Removed     bool
	ActiveLoans map[LoanIDString]Loan
}

// ProjectBookState replays history for bookID. Events of other books are ignored.
func ProjectBookState(history DomainEvents, bookID BookIDString) BookState {
	state := BookState{Book: Book{ID: bookID}}

	for _, event := range history {
		state.Apply(event)
	}

	return state
}

// Apply folds one event into the state.
func (s *BookState) Apply(event DomainEvent) {
	if event == nil || event.ForBook() != s.Book.ID {
		return
	}

	if s.ActiveLoans == nil {
		s.ActiveLoans = make(map[LoanIDString]Loan)
	}

	switch e := event.(type) {
	case BookSynced:
		s.Book = e.Book
		s.Known = true
		s.Removed = false

	case BookRemoved:
		s.Removed = true
		s.Book.AvailableQuantity = 0

	case BookBorrowed:
		s.Book.AvailableQuantity = e.AvailableQuantity
		s.ActiveLoans[e.LoanID] = e.Loan()

	case BookReturned:
		s.Book.AvailableQuantity = e.AvailableQuantity
		delete(s.ActiveLoans, e.LoanID)
	}
}

// ActiveLoanOf returns the borrower's active loan of the book, if any.
func (s BookState) ActiveLoanOf(borrower BorrowerIDString) (Loan, bool) {
	for _, loan := range s.ActiveLoans {
		if loan.Borrower == borrower {
			return loan, true
		}
	}

	return Loan{}, false
}

// Loans returns the active loans ordered by return date, then ID.
func (s BookState) Loans() []Loan {
	loans := make([]Loan, 0, len(s.ActiveLoans))
	for _, loan := range s.ActiveLoans {
		loans = append(loans, loan)
	}

	slices.SortFunc(loans, CompareLoansByReturnDate)

	return loans
}

// CompareLoansByReturnDate orders the loan due first before the others.
func CompareLoansByReturnDate(a, b Loan) int {
	if c := a.ReturnDate.Compare(b.ReturnDate); c != 0 {
		return c
	}

	return cmp.Compare(a.ID, b.ID)
}
