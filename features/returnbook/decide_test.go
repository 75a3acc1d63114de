package returnbook_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/features/returnbook"
)

var now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func givenHistoryWithLoan(borrower string) core.DomainEvents {
	book := core.Book{ID: "b-1", Title: "Dune", Author: "Frank Herbert", TotalQuantity: 2, AvailableQuantity: 2}
	loan := core.Loan{ID: "l-1", BookID: "b-1", Borrower: borrower, BorrowedAt: now.AddDate(0, 0, -3), ReturnDate: now.AddDate(0, 0, 4), Status: core.LoanActive}
	book.AvailableQuantity = 1

	return core.DomainEvents{
		core.BuildBookSynced(core.Book{ID: "b-1", Title: "Dune", Author: "Frank Herbert", TotalQuantity: 2, AvailableQuantity: 2}, now.AddDate(0, 0, -4)),
		core.BuildBookBorrowed(book, loan, now.AddDate(0, 0, -3)),
	}
}

func Test_Decide_Success_Gives_The_Copy_Back(t *testing.T) {
	// act
	result := returnbook.Decide(givenHistoryWithLoan("reader-1"), returnbook.BuildCommand("l-1", "b-1", "reader-1", now))

	// assert
	require.NoError(t, result.HasError())
	event, ok := result.Event.(core.BookReturned)
	require.True(t, ok)
	assert.Equal(t, 2, event.AvailableQuantity)
	assert.Equal(t, "l-1", event.LoanID)
}

func Test_Decide_Errors(t *testing.T) {
	returned := append(givenHistoryWithLoan("reader-1"), core.BuildBookReturned(core.Book{ID: "b-1", AvailableQuantity: 2}, core.Loan{ID: "l-1", Borrower: "reader-1"}, now))

	testCases := []struct {
		description string
		history     core.DomainEvents
		command     returnbook.Command
		expectedErr error
	}{
		{"no borrower", givenHistoryWithLoan("reader-1"), returnbook.BuildCommand("l-1", "b-1", "", now), core.ErrUnauthenticated},
		{"unknown loan", givenHistoryWithLoan("reader-1"), returnbook.BuildCommand("l-2", "b-1", "reader-1", now), core.ErrNotFound},
		{"someone else's loan", givenHistoryWithLoan("reader-2"), returnbook.BuildCommand("l-1", "b-1", "reader-1", now), core.ErrNotFound},
		{"already returned", returned, returnbook.BuildCommand("l-1", "b-1", "reader-1", now), core.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			result := returnbook.Decide(tc.history, tc.command)

			assert.ErrorIs(t, result.HasError(), tc.expectedErr)
			_, ok := result.Event.(core.ReturningBookFailed)
			assert.True(t, ok)
		})
	}
}
