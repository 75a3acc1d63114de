package core

import (
	"time"
)

// CanBorrow reports whether the borrow action is offered: a copy is available, the user
// holds no active loan of the book, and the user is authenticated.
func CanBorrow(book Book, hasActiveLoan bool, authenticated bool) bool {
	return book.AvailableQuantity > 0 && !hasActiveLoan && authenticated
}

// Borrow checks the borrow preconditions and returns the book with one copy less and the new
// active Loan. On error the inputs are returned unchanged.
func Borrow(
	book Book,
	loanID LoanIDString,
	borrower BorrowerIDString,
	returnDate time.Time,
	now time.Time,
) (Book, Loan, error) {

	if borrower == "" {
		return book, Loan{}, ErrUnauthenticated
	}

	if DaysBetween(returnDate, now) < 0 {
		return book, Loan{}, ErrInvalidDate
	}

	if book.AvailableQuantity <= 0 {
		return book, Loan{}, ErrOutOfStock
	}

	book.AvailableQuantity--

	loan := Loan{
		ID:         loanID,
		BookID:     book.ID,
		Borrower:   borrower,
		BorrowedAt: ToOccurredAt(now),
		ReturnDate: CalendarDay(returnDate),
		Status:     LoanActive,
	}

	return book, loan, nil
}

// Return gives the loan's copy back: one more available copy and the loan marked returned.
// A loan that is not active, or belongs to another book, is ErrNotFound.
func Return(book Book, loan Loan, now time.Time) (Book, Loan, error) {
	if !loan.IsActive() || loan.BookID != book.ID {
		return book, loan, ErrNotFound
	}

	book.AvailableQuantity++
	loan.Status = LoanReturned
	loan.ReturnedAt = ToOccurredAt(now)

	return book, loan, nil
}
