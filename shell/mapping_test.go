package shell_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/shell"
)

func Test_EntryFrom_Then_DomainEventFrom_Keeps_The_Loan(t *testing.T) {
	// arrange
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	book := core.Book{ID: "book-1", Title: "Dune", Author: "Frank Herbert", TotalQuantity: 2, AvailableQuantity: 1, Rating: 4.5}
	loan := core.Loan{ID: "loan-1", BookID: "book-1", Borrower: "reader-1", BorrowedAt: now, ReturnDate: now.AddDate(0, 0, 7), Status: core.LoanActive}
	event := core.BuildBookBorrowed(book, loan, now)
	metadata := shell.NewCommandMetadata()

	// act
	entry, err := shell.EntryFrom(event, metadata)
	require.NoError(t, err)
	decoded, decodeErr := shell.DomainEventFrom(entry)
	require.NoError(t, decodeErr)
	decodedMetadata, metadataErr := shell.EventMetadataFrom(entry)
	require.NoError(t, metadataErr)

	// assert
	assert.Equal(t, core.BookBorrowedEventType, entry.Kind)
	assert.Contains(t, string(entry.PayloadJSON), `"BookID":"book-1"`)
	assert.Equal(t, event, decoded)
	assert.Equal(t, metadata, decodedMetadata)
}

func Test_EntriesFrom_Chains_Causation(t *testing.T) {
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	metadata := shell.NewCommandMetadata()

	entries, err := shell.EntriesFrom(core.DomainEvents{
		core.BuildBookSynced(core.Book{ID: "book-1"}, now),
		core.BuildBookRemoved("book-1", now),
	}, metadata)
	require.NoError(t, err)

	second, _ := shell.EventMetadataFrom(entries[1])
	assert.Equal(t, metadata.MessageID, second.CausationID)
	assert.Equal(t, metadata.CorrelationID, second.CorrelationID)
	assert.NotEqual(t, metadata.MessageID, second.MessageID)
}

func Test_DomainEventFrom_Unknown_Kind(t *testing.T) {
	entry, _ := journal.BuildEntry("SomethingElse", time.Now(), []byte(`{}`), []byte(`{}`))

	_, err := shell.DomainEventFrom(entry)

	assert.ErrorIs(t, err, shell.ErrMappingToDomainEventUnknownEventType)
}

func Test_NewLogger(t *testing.T) {
	logger, err := shell.NewLogger("debug", "json", &nopWriter{})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = shell.NewLogger("loud", "text", &nopWriter{})
	assert.Error(t, err)

	_, err = shell.NewLogger("info", "xml", &nopWriter{})
	assert.ErrorIs(t, err, shell.ErrUnknownLogFormat)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
