package core

import (
	"time"
)

const BookBorrowedEventType = "BookBorrowed"

// BookBorrowed records a loan the server accepted. AvailableQuantity is the server's count after it.
type BookBorrowed struct {
	BookID            BookIDString
	LoanID            LoanIDString
	BorrowerID        BorrowerIDString
	BorrowedAt        time.Time
	ReturnDate        time.Time
	AvailableQuantity int
	OccurredAt        OccurredAtTS
}

// BuildBookBorrowed creates the event from the server's book and loan.
func BuildBookBorrowed(book Book, loan Loan, occurredAt time.Time) BookBorrowed {
	return BookBorrowed{
		BookID:            book.ID,
		LoanID:            loan.ID,
		BorrowerID:        loan.Borrower,
		BorrowedAt:        ToOccurredAt(loan.BorrowedAt),
		ReturnDate:        CalendarDay(loan.ReturnDate),
		AvailableQuantity: book.AvailableQuantity,
		OccurredAt:        ToOccurredAt(occurredAt),
	}
}

// Loan returns the active loan the event describes.
func (e BookBorrowed) Loan() Loan {
	return Loan{
		ID:         e.LoanID,
		BookID:     e.BookID,
		Borrower:   e.BorrowerID,
		BorrowedAt: e.BorrowedAt,
		ReturnDate: e.ReturnDate,
		Status:     LoanActive,
	}
}

func (e BookBorrowed) EventType() string {
	return BookBorrowedEventType
}

func (e BookBorrowed) HasOccurredAt() time.Time {
	return e.OccurredAt
}

func (e BookBorrowed) IsErrorEvent() bool {
	return false
}

func (e BookBorrowed) ForBook() BookIDString {
	return e.BookID
}
