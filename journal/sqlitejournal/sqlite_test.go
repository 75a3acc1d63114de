package sqlitejournal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/journal/sqlitejournal"
)

func openJournal(t *testing.T) *sqlitejournal.Journal {
	t.Helper()

	j, err := sqlitejournal.Open(t.Context(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j
}

func givenEntry(t *testing.T, kind, bookID, borrowerID string) journal.Entry {
	t.Helper()

	payload := []byte(`{"BookID":"` + bookID + `","BorrowerID":"` + borrowerID + `"}`)
	entry, err := journal.BuildEntry(kind, time.Date(2026, 10, 1, 9, 30, 0, 123000, time.UTC), payload, []byte(`{}`))
	require.NoError(t, err)

	return entry
}

func bookFilter(bookID string) journal.Filter {
	return journal.BuildFilter().
		Matching().
		AnyKindOf("BookBorrowed", "BookReturned").
		AndAnyPredicateOf(journal.P("BookID", bookID)).
		Finalize()
}

func Test_Append_Then_Query_Returns_Entry_And_Position(t *testing.T) {
	// arrange
	j := openJournal(t)
	ctx := t.Context()
	entry := givenEntry(t, "BookBorrowed", "b-1", "r-1")

	// act
	err := j.Append(ctx, bookFilter("b-1"), 0, entry)
	require.NoError(t, err)
	entries, position, queryErr := j.Query(ctx, bookFilter("b-1"))

	// assert
	require.NoError(t, queryErr)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.Position(1), position)
	assert.Equal(t, "BookBorrowed", entries[0].Kind)
	assert.True(t, entry.OccurredAt.Equal(entries[0].OccurredAt))
	assert.JSONEq(t, string(entry.PayloadJSON), string(entries[0].PayloadJSON))
}

func Test_Append_With_Stale_Position_Fails_With_ConcurrencyConflict(t *testing.T) {
	// arrange
	j := openJournal(t)
	ctx := t.Context()
	require.NoError(t, j.Append(ctx, bookFilter("b-1"), 0, givenEntry(t, "BookBorrowed", "b-1", "r-1")))

	// act
	err := j.Append(ctx, bookFilter("b-1"), 0, givenEntry(t, "BookBorrowed", "b-1", "r-2"))

	// assert
	assert.ErrorIs(t, err, journal.ErrConcurrencyConflict)
	entries, _, _ := j.Query(ctx, bookFilter("b-1"))
	assert.Len(t, entries, 1)
}

func Test_Append_Is_Not_Blocked_By_Entries_Outside_The_Filter(t *testing.T) {
	// arrange
	j := openJournal(t)
	ctx := t.Context()
	require.NoError(t, j.Append(ctx, bookFilter("b-2"), 0, givenEntry(t, "BookBorrowed", "b-2", "r-1")))

	// act
	err := j.Append(ctx, bookFilter("b-1"), 0, givenEntry(t, "BookBorrowed", "b-1", "r-1"))

	// assert
	assert.NoError(t, err)
	_, position, _ := j.Query(ctx, bookFilter("b-1"))
	assert.Equal(t, journal.Position(2), position)
}

func Test_Append_Multiple_Entries_Atomically(t *testing.T) {
	// arrange
	j := openJournal(t)
	ctx := t.Context()

	// act
	err := j.Append(
		ctx,
		bookFilter("b-1"),
		0,
		givenEntry(t, "BookBorrowed", "b-1", "r-1"),
		givenEntry(t, "BookReturned", "b-1", "r-1"),
	)

	// assert
	require.NoError(t, err)
	entries, position, _ := j.Query(ctx, bookFilter("b-1"))
	require.Len(t, entries, 2)
	assert.Equal(t, "BookBorrowed", entries[0].Kind)
	assert.Equal(t, "BookReturned", entries[1].Kind)
	assert.Equal(t, journal.Position(2), position)

	conflictErr := j.Append(
		ctx,
		bookFilter("b-1"),
		1,
		givenEntry(t, "BookBorrowed", "b-1", "r-2"),
		givenEntry(t, "BookBorrowed", "b-1", "r-3"),
	)
	assert.ErrorIs(t, conflictErr, journal.ErrConcurrencyConflict)
}

func Test_Query_With_All_Predicates(t *testing.T) {
	// arrange
	j := openJournal(t)
	ctx := t.Context()
	anyFilter := journal.BuildFilter().MatchingAnyEntry()
	require.NoError(t, j.Append(ctx, anyFilter, 0, givenEntry(t, "BookBorrowed", "b-1", "r-1")))
	require.NoError(t, j.Append(ctx, anyFilter, 1, givenEntry(t, "BookBorrowed", "b-1", "r-2")))
	require.NoError(t, j.Append(ctx, anyFilter, 2, givenEntry(t, "BookBorrowed", "b-2", "r-1")))

	filter := journal.BuildFilter().
		Matching().
		AllPredicatesOf(journal.P("BookID", "b-1"), journal.P("BorrowerID", "r-1")).
		Finalize()

	// act
	entries, position, err := j.Query(ctx, filter)

	// assert
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, journal.Position(1), position)
}

func Test_Query_Empty_Stream(t *testing.T) {
	j := openJournal(t)

	entries, position, err := j.Query(t.Context(), bookFilter("unknown"))

	assert.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, journal.Position(0), position)
}

func Test_Open_Rejects_Invalid_Table_Name(t *testing.T) {
	_, err := sqlitejournal.Open(t.Context(), ":memory:", journal.WithTableName("events; DROP"))

	assert.ErrorIs(t, err, journal.ErrCreatingSchemaFailed)
}
