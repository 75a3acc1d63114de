package core

import (
	"time"
)

const BookReturnedEventType = "BookReturned"

// BookReturned records a return the server accepted. AvailableQuantity is the server's count after it.
type BookReturned struct {
	BookID            BookIDString
	LoanID            LoanIDString
	BorrowerID        BorrowerIDString
	AvailableQuantity int
	OccurredAt        OccurredAtTS
}

func BuildBookReturned(book Book, loan Loan, occurredAt time.Time) BookReturned {
	return BookReturned{
		BookID:            book.ID,
		LoanID:            loan.ID,
		BorrowerID:        loan.Borrower,
		AvailableQuantity: book.AvailableQuantity,
		OccurredAt:        ToOccurredAt(occurredAt),
	}
}

func (e BookReturned) EventType() string {
	return BookReturnedEventType
}

func (e BookReturned) HasOccurredAt() time.Time {
	return e.OccurredAt
}

func (e BookReturned) IsErrorEvent() bool {
	return false
}

func (e BookReturned) ForBook() BookIDString {
	return e.BookID
}
