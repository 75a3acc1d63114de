package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/features/catalog"
	"github.com/bookverse/borrowledger/shell"
	"github.com/bookverse/borrowledger/testutil/ledgertest"
)

func givenNewBook() core.Book {
	return core.Book{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Category: "Science Fiction", Rating: 5, TotalQuantity: 2}
}

func Test_CommandHandler_Add_Update_Remove(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t)
	j := ledgertest.NewJournal(t)
	handler := catalog.NewCommandHandler(j, ledgertest.NewClient(t, server, "owner-1"))

	// act
	added, _, err := handler.Add(t.Context(), catalog.BuildAddCommand(givenNewBook(), "owner-1", ledgertest.Now))
	require.NoError(t, err)
	changed := added.Book
	changed.TotalQuantity = 3
	updated, _, err := handler.Update(t.Context(), catalog.BuildUpdateCommand(changed, "owner-1", ledgertest.Now))
	require.NoError(t, err)
	mine, err := handler.List(t.Context(), "", true)
	require.NoError(t, err)
	removed, _, err := handler.Remove(t.Context(), catalog.BuildRemoveCommand(added.Book.ID, "owner-1", ledgertest.Now))
	require.NoError(t, err)
	_, _, err = handler.Remove(t.Context(), catalog.BuildRemoveCommand(added.Book.ID, "owner-1", ledgertest.Now))

	// assert
	assert.NotEmpty(t, added.Book.ID)
	assert.Equal(t, 2, added.Book.AvailableQuantity)
	assert.Equal(t, "owner-1", added.Book.Owner)
	assert.Equal(t, 3, updated.Book.AvailableQuantity)
	require.Len(t, mine, 1)
	require.Len(t, removed.Events, 1)
	assert.ErrorIs(t, err, core.ErrNotFound)

	history, _, queryErr := shell.QueryHistory(t.Context(), j, catalog.BuildEventFilter(added.Book.ID))
	require.NoError(t, queryErr)
	assert.True(t, core.ProjectBookState(history, added.Book.ID).Removed)
}

func Test_CommandHandler_Add_Validates_Before_Sending(t *testing.T) {
	server := ledgertest.NewServer(t)
	handler := catalog.NewCommandHandler(ledgertest.NewJournal(t), ledgertest.NewClient(t, server, "owner-1"))
	book := givenNewBook()
	book.Rating = 4.3

	_, _, err := handler.Add(t.Context(), catalog.BuildAddCommand(book, "owner-1", ledgertest.Now))

	assert.ErrorIs(t, err, core.ErrInvalidBook)
	assert.Equal(t, 0, server.Requests("POST /books"))
}

func Test_CommandHandler_Update_Foreign_Book_Is_Rejected(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t)
	j := ledgertest.NewJournal(t)
	added, _, err := catalog.NewCommandHandler(j, ledgertest.NewClient(t, server, "owner-1")).
		Add(t.Context(), catalog.BuildAddCommand(givenNewBook(), "owner-1", ledgertest.Now))
	require.NoError(t, err)

	// act
	_, _, err = catalog.NewCommandHandler(j, ledgertest.NewClient(t, server, "owner-2")).
		Update(t.Context(), catalog.BuildUpdateCommand(added.Book, "owner-2", ledgertest.Now))

	// assert
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func Test_CommandHandler_Requires_An_Owner(t *testing.T) {
	handler := catalog.NewCommandHandler(ledgertest.NewJournal(t), ledgertest.NewClient(t, ledgertest.NewServer(t), ""))

	_, _, err := handler.Add(t.Context(), catalog.BuildAddCommand(givenNewBook(), "", ledgertest.Now))
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, _, err = handler.Remove(t.Context(), catalog.BuildRemoveCommand("b-1", "", ledgertest.Now))
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}
