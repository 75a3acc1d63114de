package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bookverse/borrowledger/core"
)

func Test_ValidateRating(t *testing.T) {
	for _, valid := range []float64{0, 0.5, 3, 4.5, 5} {
		assert.NoError(t, core.ValidateRating(valid), valid)
	}

	for _, invalid := range []float64{-0.5, 5.5, 3.3} {
		assert.ErrorIs(t, core.ValidateRating(invalid), core.ErrInvalidBook, invalid)
	}
}

func Test_Book_Validate(t *testing.T) {
	book := givenBook(2)
	assert.NoError(t, book.Validate())

	untitled := book
	untitled.Title = ""
	assert.ErrorIs(t, untitled.Validate(), core.ErrInvalidBook)

	overAvailable := book
	overAvailable.AvailableQuantity = 3
	assert.ErrorIs(t, overAvailable.Validate(), core.ErrInvalidBook)
}

func Test_ErrorKind_And_UserMessage(t *testing.T) {
	wrapped := errors.Join(core.ErrNetwork, fmt.Errorf("GET /books/1: 502 Bad Gateway"))

	assert.Equal(t, core.ErrorKindOutOfStock, core.ErrorKind(core.ErrOutOfStock))
	assert.Equal(t, core.ErrorKindNetwork, core.ErrorKind(wrapped))
	assert.Equal(t, core.ErrorKindUnknown, core.ErrorKind(errors.New("boom")))
	assert.Equal(t, "", core.ErrorKind(nil))
	assert.Equal(t, "Something went wrong talking to the library: GET /books/1: 502 Bad Gateway", core.UserMessage(wrapped))
	assert.Equal(t, "Please log in to continue.", core.UserMessage(core.ErrUnauthenticated))
}

func Test_ParseReturnDate(t *testing.T) {
	date, err := core.ParseReturnDate("2026-10-20")
	assert.NoError(t, err)
	assert.Equal(t, 20, date.Day())

	_, err = core.ParseReturnDate("20/10/2026")
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}
