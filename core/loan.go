package core

import "time"

// LoanStatus is the lifecycle state of a Loan.
type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
)

// Loan is one borrowed copy of a Book, open until returned.
type Loan struct {
	ID         LoanIDString
	BookID     BookIDString
	Borrower   BorrowerIDString
	BorrowedAt time.Time
	ReturnDate time.Time
	Status     LoanStatus
	ReturnedAt time.Time
}

func (l Loan) IsActive() bool {
	return l.Status == LoanActive
}
