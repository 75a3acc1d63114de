package core_test

import (
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/core"
)

var today = time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC)

func givenBook(available int) core.Book {
	return core.Book{
		ID:                "book-1",
		Title:             "The Left Hand of Darkness",
		Author:            "Ursula K. Le Guin",
		Category:          "Science Fiction",
		Rating:            4.5,
		TotalQuantity:     available,
		AvailableQuantity: available,
	}
}

func Test_CanBorrow(t *testing.T) {
	tests := []struct {
		name          string
		available     int
		hasActiveLoan bool
		authenticated bool
		want          bool
	}{
		{name: "copy available", available: 1, authenticated: true, want: true},
		{name: "no copy left", available: 0, authenticated: true, want: false},
		{name: "already borrowed", available: 2, hasActiveLoan: true, authenticated: true, want: false},
		{name: "anonymous", available: 2, authenticated: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.CanBorrow(givenBook(tt.available), tt.hasActiveLoan, tt.authenticated))
		})
	}
}

func Test_Borrow_Last_Copy_Then_Borrow_Again_Is_OutOfStock(t *testing.T) {
	// arrange
	book := givenBook(1)

	// act
	afterFirst, loan, err := core.Borrow(book, "loan-1", "reader-1", today.AddDate(0, 0, 7), today)
	require.NoError(t, err)
	afterSecond, _, secondErr := core.Borrow(afterFirst, "loan-2", "reader-2", today.AddDate(0, 0, 7), today)

	// assert
	assert.Equal(t, 0, afterFirst.AvailableQuantity)
	assert.Equal(t, core.LoanActive, loan.Status)
	assert.Equal(t, "book-1", loan.BookID)
	assert.Equal(t, "reader-1", loan.Borrower)
	assert.Equal(t, core.ToOccurredAt(today), loan.BorrowedAt)
	assert.Equal(t, time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC), loan.ReturnDate)
	assert.ErrorIs(t, secondErr, core.ErrOutOfStock)
	assert.Equal(t, afterFirst, afterSecond)
}

func Test_Borrow_With_Return_Date_Yesterday_Is_InvalidDate_And_Changes_Nothing(t *testing.T) {
	book := givenBook(3)

	after, loan, err := core.Borrow(book, "loan-1", "reader-1", today.AddDate(0, 0, -1), today)

	assert.ErrorIs(t, err, core.ErrInvalidDate)
	assert.Equal(t, book, after)
	assert.Equal(t, core.Loan{}, loan)
}

func Test_Borrow_With_Return_Date_Today_Is_Accepted(t *testing.T) {
	_, loan, err := core.Borrow(givenBook(1), "loan-1", "reader-1", time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), today)

	assert.NoError(t, err)
	assert.Equal(t, core.CalendarDay(today), loan.ReturnDate)
}

func Test_Borrow_Without_Borrower_Is_Unauthenticated(t *testing.T) {
	_, _, err := core.Borrow(givenBook(1), "loan-1", "", today, today)

	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func Test_Borrow_Then_Return_Restores_Available_Quantity(t *testing.T) {
	// arrange
	book := givenBook(4)

	// act
	borrowed, loan, err := core.Borrow(book, "loan-1", "reader-1", today.AddDate(0, 0, 14), today)
	require.NoError(t, err)
	returned, closedLoan, returnErr := core.Return(borrowed, loan, today.Add(time.Hour))

	// assert
	require.NoError(t, returnErr)
	assert.Equal(t, book.AvailableQuantity, returned.AvailableQuantity)
	assert.Equal(t, core.LoanReturned, closedLoan.Status)
	assert.False(t, closedLoan.ReturnedAt.IsZero())
}

func Test_Return_Of_Returned_Loan_Is_NotFound(t *testing.T) {
	// arrange
	borrowed, loan, _ := core.Borrow(givenBook(1), "loan-1", "reader-1", today, today)
	returned, closedLoan, _ := core.Return(borrowed, loan, today)

	// act
	after, _, err := core.Return(returned, closedLoan, today)

	// assert
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, returned, after)
}

func Test_Return_Of_Loan_For_Another_Book_Is_NotFound(t *testing.T) {
	_, loan, _ := core.Borrow(givenBook(1), "loan-1", "reader-1", today, today)
	other := givenBook(1)
	other.ID = "book-2"

	_, _, err := core.Return(other, loan, today)

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func Test_Available_Quantity_Never_Goes_Negative(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	for run := 0; run < 50; run++ {
		book := givenBook(rng.IntN(4))
		active := make([]core.Loan, 0)

		for step := 0; step < 200; step++ {
			if len(active) > 0 && rng.IntN(2) == 0 {
				i := rng.IntN(len(active))
				var err error
				book, _, err = core.Return(book, active[i], today)
				require.NoError(t, err)
				active = append(active[:i], active[i+1:]...)
			} else {
				next, loan, err := core.Borrow(book, strconv.Itoa(step), "reader", today.AddDate(0, 0, rng.IntN(10)), today)
				if err == nil {
					active = append(active, loan)
				} else {
					require.ErrorIs(t, err, core.ErrOutOfStock)
				}
				book = next
			}

			require.GreaterOrEqual(t, book.AvailableQuantity, 0)
			require.Equal(t, book.TotalQuantity-len(active), book.AvailableQuantity)
		}
	}
}
