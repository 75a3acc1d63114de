package borrowedbooks

import (
	"github.com/bookverse/borrowledger/core"
)

// BorrowedBook is one active loan as the display layer shows it.
type BorrowedBook struct {
	Loan      core.Loan
	Book      core.Book
	DueStatus core.DueStatus
}

type BorrowedBooks struct {
	BorrowerID core.BorrowerIDString
	Books      []BorrowedBook
	Count      int
	Overdue    int
	Urgent     int
}
