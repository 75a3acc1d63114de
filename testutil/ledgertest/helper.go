// Package ledgertest wires real in-memory journals, the fake REST API and API clients for
// handler tests.
package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/identity"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/journal/sqlitejournal"
	"github.com/bookverse/borrowledger/restapi"
	"github.com/bookverse/borrowledger/restapi/restapitest"
)

// Now is the fixed clock of handler tests.
var Now = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

// Day returns the calendar day offset days from Now.
func Day(offset int) time.Time {
	return core.CalendarDay(Now).AddDate(0, 0, offset)
}

// NewJournal opens a private in-memory sqlite journal.
func NewJournal(tb testing.TB, options ...journal.Option) *sqlitejournal.Journal {
	tb.Helper()

	j, err := sqlitejournal.Open(tb.Context(), ":memory:", options...)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = j.Close() })

	return j
}

// NewServer starts the fake API with its clock pinned to Now and the given books in stock.
func NewServer(tb testing.TB, books ...core.Book) *restapitest.Server {
	tb.Helper()

	server := restapitest.NewServer(tb)
	server.SetNow(Now)

	for _, book := range books {
		server.PutBook(book)
	}

	return server
}

// NewSource returns the identity of subject, or an anonymous one for an empty subject.
func NewSource(tb testing.TB, subject string) identity.Source {
	tb.Helper()

	if subject == "" {
		return identity.Anonymous{}
	}

	return identity.StaticSource{
		Token:    restapitest.SignToken(tb, subject),
		Verifier: identity.Verifier{Now: func() time.Time { return Now }},
	}
}

// NewClient returns an API client for server acting as subject. The book cache is off so tests
// always see the server state.
func NewClient(tb testing.TB, server *restapitest.Server, subject string) *restapi.Client {
	tb.Helper()

	client, err := restapi.NewClient(server.URL(), NewSource(tb, subject), restapi.WithBookCache(0, 0))
	require.NoError(tb, err)

	return client
}

// GivenBook builds a catalog book.
func GivenBook(id core.BookIDString, available, total int) core.Book {
	return core.Book{
		ID:                id,
		Title:             "Book " + id,
		Author:            "Author of " + id,
		Category:          "Fiction",
		Rating:            4.5,
		TotalQuantity:     total,
		AvailableQuantity: available,
	}
}

// AppendFailingJournal reads through to Journal and rejects every append with Err.
type AppendFailingJournal struct {
	*sqlitejournal.Journal
	Err error
}

func (j AppendFailingJournal) Append(context.Context, journal.Filter, journal.Position, journal.Entry, ...journal.Entry) error {
	return j.Err
}
