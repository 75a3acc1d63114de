package borrowedbooks_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/features/borrowedbooks"
)

var now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func givenLoan(id, bookID, borrower string, returnInDays int) core.BookBorrowed {
	loan := core.Loan{ID: id, BookID: bookID, Borrower: borrower, BorrowedAt: now.AddDate(0, 0, -10), ReturnDate: now.AddDate(0, 0, returnInDays), Status: core.LoanActive}

	return core.BuildBookBorrowed(core.Book{ID: bookID, AvailableQuantity: 0}, loan, now.AddDate(0, 0, -10))
}

func Test_ProjectBorrowedBooks_Orders_By_Return_Date_And_Classifies(t *testing.T) {
	// arrange
	loans := core.DomainEvents{
		givenLoan("l-1", "b-1", "reader-1", 10),
		givenLoan("l-2", "b-2", "reader-1", -2),
		givenLoan("l-3", "b-3", "reader-1", 3),
		givenLoan("l-4", "b-4", "reader-2", 1),
		givenLoan("l-5", "b-5", "reader-1", 0),
		core.BuildBookReturned(core.Book{ID: "b-5", AvailableQuantity: 1}, core.Loan{ID: "l-5", Borrower: "reader-1"}, now),
	}
	books := core.DomainEvents{
		core.BuildBookSynced(core.Book{ID: "b-2", Title: "Dune", Author: "Frank Herbert", TotalQuantity: 1, AvailableQuantity: 1}, now.AddDate(0, 0, -11)),
		givenLoan("l-2", "b-2", "reader-1", -2),
	}

	// act
	result := borrowedbooks.ProjectBorrowedBooks(loans, books, borrowedbooks.BuildQuery("reader-1", now))

	// assert
	require.Equal(t, 3, result.Count)
	assert.Equal(t, "l-2", result.Books[0].Loan.ID)
	assert.Equal(t, "l-3", result.Books[1].Loan.ID)
	assert.Equal(t, "l-1", result.Books[2].Loan.ID)
	assert.Equal(t, core.DueStatus{Level: core.DueOverdue, DaysRemaining: -2, OverdueDays: 2}, result.Books[0].DueStatus)
	assert.Equal(t, core.DueUrgent, result.Books[1].DueStatus.Level)
	assert.Equal(t, core.DueNormal, result.Books[2].DueStatus.Level)
	assert.Equal(t, "Dune", result.Books[0].Book.Title)
	assert.Equal(t, 1, result.Overdue)
	assert.Equal(t, 1, result.Urgent)
}

func Test_ProjectBorrowedBooks_Empty(t *testing.T) {
	result := borrowedbooks.ProjectBorrowedBooks(nil, nil, borrowedbooks.BuildQuery("reader-1", now))

	assert.Zero(t, result.Count)
	assert.Empty(t, result.Books)
}
