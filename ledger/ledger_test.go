package ledger_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal/sqlitejournal"
	"github.com/bookverse/borrowledger/ledger"
	"github.com/bookverse/borrowledger/restapi"
	"github.com/bookverse/borrowledger/restapi/restapitest"
	"github.com/bookverse/borrowledger/testutil/ledgertest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events core.DomainEvents
}

func (p *recordingPublisher) Publish(_ context.Context, events core.DomainEvents) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, events...)

	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.EventType())
	}

	return types
}

func givenLedger(t *testing.T, server *restapitest.Server, subject string, opts ...ledger.Option) (*ledger.Ledger, *sqlitejournal.Journal) {
	t.Helper()

	return givenLedgerOn(t, ledgertest.NewJournal(t), server, subject, opts...)
}

func givenLedgerOn(
	t *testing.T,
	j *sqlitejournal.Journal,
	server *restapitest.Server,
	subject string,
	opts ...ledger.Option,
) (*ledger.Ledger, *sqlitejournal.Journal) {

	t.Helper()

	l := ledger.New(j, ledgertest.NewClient(t, server, subject), ledgertest.NewSource(t, subject),
		append([]ledger.Option{ledger.WithClock(func() time.Time { return ledgertest.Now })}, opts...)...)
	require.NoError(t, l.Load(t.Context()))

	return l, j
}

func Test_Ledger_RecordBorrow_Takes_The_Last_Copy_And_Then_Reports_Out_Of_Stock(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 1, 1))
	alice, _ := givenLedger(t, server, "alice")
	bob, _ := givenLedger(t, server, "bob")

	// act
	book, loan, err := alice.RecordBorrow(t.Context(), "b1", ledgertest.Day(7))
	require.NoError(t, err)
	_, _, secondErr := bob.RecordBorrow(t.Context(), "b1", ledgertest.Day(7))

	// assert
	assert.Equal(t, 0, book.AvailableQuantity)
	assert.Equal(t, "alice", loan.Borrower)
	assert.ErrorIs(t, secondErr, core.ErrOutOfStock)

	stored, ok := alice.Store().Book("b1")
	require.True(t, ok)
	assert.Equal(t, 0, stored.Book.AvailableQuantity)
	assert.Len(t, stored.ActiveLoans, 1)

	seenByBob, ok := bob.Store().Book("b1")
	require.True(t, ok)
	assert.Equal(t, 0, seenByBob.Book.AvailableQuantity, "bob's store holds the server count after the resync")
}

func Test_Ledger_RecordBorrow_Rejects_A_Past_Return_Date_Without_Mutating_Anything(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 1, 1))
	l, _ := givenLedger(t, server, "alice")
	_, err := l.Book(t.Context(), "b1")
	require.NoError(t, err)

	// act
	_, _, err = l.RecordBorrow(t.Context(), "b1", ledgertest.Day(-1))

	// assert
	assert.ErrorIs(t, err, core.ErrInvalidDate)
	assert.Equal(t, 0, server.Requests("POST /borrow"))

	stored, _ := l.Store().Book("b1")
	assert.Equal(t, 1, stored.Book.AvailableQuantity)
	assert.Empty(t, stored.ActiveLoans)

	onServer, _ := server.Book("b1")
	assert.Equal(t, 1, onServer.AvailableQuantity)
}

func Test_Ledger_RecordReturn_Restores_Availability(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 2, 2))
	publisher := &recordingPublisher{}
	l, _ := givenLedger(t, server, "alice", ledger.WithPublisher(publisher))
	_, loan, err := l.RecordBorrow(t.Context(), "b1", ledgertest.Day(3))
	require.NoError(t, err)

	// act
	book, returned, err := l.RecordReturn(t.Context(), loan.ID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, book.AvailableQuantity)
	assert.Equal(t, core.LoanReturned, returned.Status)

	stored, _ := l.Store().Book("b1")
	assert.Equal(t, 2, stored.Book.AvailableQuantity)
	assert.Empty(t, stored.ActiveLoans)
	assert.Empty(t, l.Store().ActiveLoans("alice"))
	assert.Equal(t,
		[]string{core.BookSyncedEventType, core.BookBorrowedEventType, core.BookReturnedEventType},
		publisher.eventTypes())
}

func Test_Ledger_RecordBorrow_Requires_An_Identity(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 1, 1))
	l, _ := givenLedger(t, server, "")

	// act
	canBorrow, err := l.CanBorrow(t.Context(), "b1")
	require.NoError(t, err)
	_, _, borrowErr := l.RecordBorrow(t.Context(), "b1", ledgertest.Day(1))

	// assert
	assert.False(t, canBorrow)
	assert.ErrorIs(t, borrowErr, core.ErrUnauthenticated)
	assert.Equal(t, 0, server.Requests("POST /borrow"))
}

func Test_Ledger_CanBorrow(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 2, 2), ledgertest.GivenBook("empty", 0, 1))
	l, _ := givenLedger(t, server, "alice")

	// act
	before, err := l.CanBorrow(t.Context(), "b1")
	require.NoError(t, err)
	_, _, err = l.RecordBorrow(t.Context(), "b1", ledgertest.Day(2))
	require.NoError(t, err)
	after, err := l.CanBorrow(t.Context(), "b1")
	require.NoError(t, err)
	empty, err := l.CanBorrow(t.Context(), "empty")
	require.NoError(t, err)
	_, missingErr := l.CanBorrow(t.Context(), "missing")

	// assert
	assert.True(t, before)
	assert.False(t, after, "the borrower already holds a copy")
	assert.False(t, empty)
	assert.ErrorIs(t, missingErr, core.ErrNotFound)
}

func Test_Ledger_Load_Rebuilds_The_Store_From_The_Journal(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 1, 1))
	l, j := givenLedger(t, server, "alice")
	_, loan, err := l.RecordBorrow(t.Context(), "b1", ledgertest.Day(1))
	require.NoError(t, err)

	reopened := ledger.New(j, ledgertest.NewClient(t, server, "alice"), ledgertest.NewSource(t, "alice"))

	// act
	err = reopened.Load(t.Context())

	// assert
	require.NoError(t, err)
	bookID, ok := reopened.Store().BookOfLoan(loan.ID)
	assert.True(t, ok)
	assert.Equal(t, "b1", bookID)
	assert.Equal(t, []core.Book{l.Store().Books()[0]}, reopened.Store().Books())
}

func Test_Ledger_Resync_Picks_Up_Server_Changes(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 3, 3))
	l, _ := givenLedger(t, server, "alice")
	_, err := l.Book(t.Context(), "b1")
	require.NoError(t, err)
	server.PutBook(ledgertest.GivenBook("b1", 1, 3))

	// act
	book, err := l.Resync(t.Context(), "b1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableQuantity)
	stored, _ := l.Store().Book("b1")
	assert.Equal(t, 1, stored.Book.AvailableQuantity)
}

func Test_Ledger_RecordBorrow_Resyncs_When_The_Server_Is_Out_Of_Stock(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 1, 1))
	l, _ := givenLedger(t, server, "alice")
	_, err := l.Book(t.Context(), "b1")
	require.NoError(t, err)
	server.PutBook(ledgertest.GivenBook("b1", 0, 1))

	// act
	_, _, err = l.RecordBorrow(t.Context(), "b1", ledgertest.Day(1))

	// assert
	assert.ErrorIs(t, err, core.ErrOutOfStock)
	stored, _ := l.Store().Book("b1")
	assert.Equal(t, 0, stored.Book.AvailableQuantity)
}

func Test_Ledger_RecordBorrow_Keeps_The_Store_On_Network_Errors(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 1, 1))
	l, _ := givenLedger(t, server, "alice")
	_, err := l.Book(t.Context(), "b1")
	require.NoError(t, err)
	server.FailNext(http.StatusBadGateway, "", "upstream down")

	// act
	_, _, err = l.RecordBorrow(t.Context(), "b1", ledgertest.Day(1))

	// assert
	assert.ErrorIs(t, err, core.ErrNetwork)
	var statusErr *restapi.StatusError
	assert.ErrorAs(t, err, &statusErr)
	stored, _ := l.Store().Book("b1")
	assert.Equal(t, 1, stored.Book.AvailableQuantity)
}

func Test_Ledger_Borrowed_And_SyncLoans(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 2, 2), ledgertest.GivenBook("b2", 1, 1))
	l, _ := givenLedger(t, server, "alice", ledger.WithUrgentWindowDays(2))
	_, first, err := l.RecordBorrow(t.Context(), "b1", ledgertest.Day(1))
	require.NoError(t, err)
	_, _, err = l.RecordBorrow(t.Context(), "b2", ledgertest.Day(10))
	require.NoError(t, err)

	loan, _ := server.Loan(first.ID)
	loan.Status = core.LoanReturned
	loan.ReturnedAt = ledgertest.Now
	server.PutLoan(loan)
	server.PutBook(ledgertest.GivenBook("b1", 2, 2))

	// act
	before, err := l.Borrowed(t.Context())
	require.NoError(t, err)
	changes, err := l.SyncLoans(t.Context())
	require.NoError(t, err)
	after, err := l.Borrowed(t.Context())
	require.NoError(t, err)

	// assert
	assert.Equal(t, 2, before.Count)
	assert.Equal(t, 1, before.Urgent)
	assert.Positive(t, changes)
	assert.Equal(t, 1, after.Count)
	assert.Equal(t, "b2", after.Books[0].Book.ID)
	assert.Equal(t, core.DueNormal, after.Books[0].DueStatus.Level)
}

func Test_Ledger_ClassifyDueStatus_Uses_The_Configured_Window(t *testing.T) {
	server := ledgertest.NewServer(t)
	l, _ := givenLedger(t, server, "alice", ledger.WithUrgentWindowDays(5))
	loan := core.Loan{ID: "l1", BookID: "b1", Borrower: "alice", ReturnDate: ledgertest.Day(4), Status: core.LoanActive}

	assert.Equal(t, core.DueUrgent, l.ClassifyDueStatus(loan, ledgertest.Now).Level)
	assert.Equal(t, core.DueOverdue, l.ClassifyDueStatus(loan, ledgertest.Day(5)).Level)
}

func Test_Ledger_Catalog(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t)
	l, _ := givenLedger(t, server, "owner-1")
	book := ledgertest.GivenBook("", 0, 2)

	// act
	added, err := l.AddBook(t.Context(), book)
	require.NoError(t, err)
	added.Title = "Renamed"
	updated, err := l.UpdateBook(t.Context(), added)
	require.NoError(t, err)
	listed, err := l.ListBooks(t.Context(), "Renamed", false)
	require.NoError(t, err)
	removeErr := l.RemoveBook(t.Context(), added.ID)

	// assert
	require.NoError(t, removeErr)
	assert.Equal(t, "Renamed", updated.Title)
	require.Len(t, listed, 1)
	assert.Empty(t, l.Store().Books())
	_, err = l.Book(t.Context(), added.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func Test_Ledger_Logs_Outcomes(t *testing.T) {
	// arrange
	logs := ledgertest.NewLogHandlerSpy()
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 0, 1))
	l, _ := givenLedger(t, server, "alice", ledger.WithLogger(slog.New(logs)))

	// act
	_, _, err := l.RecordBorrow(t.Context(), "b1", ledgertest.Day(1))

	// assert
	require.ErrorIs(t, err, core.ErrOutOfStock)
	failed := logs.Records("ledger operation failed")
	require.Len(t, failed, 1)
	assert.Equal(t, "borrow", failed[0].Attrs["operation"])
	assert.Equal(t, core.ErrorKindOutOfStock, failed[0].Attrs["error_kind"])
}

func Test_Ledger_RecordBorrow_Rejects_A_Past_Return_Date_For_An_Unseen_Book(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b9", 2, 2))
	l, _ := givenLedger(t, server, "alice")

	// act
	_, _, err := l.RecordBorrow(t.Context(), "b9", ledgertest.Day(-1))

	// assert
	assert.ErrorIs(t, err, core.ErrInvalidDate)
	assert.Equal(t, 0, server.Requests("GET /books/{id}"))
	assert.Equal(t, 0, server.Requests("POST /borrow"))
	_, known := l.Store().Book("b9")
	assert.False(t, known)
	assert.Empty(t, l.Store().Books())
}

func Test_Ledger_RecordBorrow_Keeps_A_Confirmed_Borrow_When_Journaling_Fails(t *testing.T) {
	// arrange
	server := ledgertest.NewServer(t, ledgertest.GivenBook("b1", 2, 2))
	j := ledgertest.NewJournal(t)
	logs := ledgertest.NewLogHandlerSpy()
	broken := ledgertest.AppendFailingJournal{Journal: j, Err: errors.New("disk I/O error")}
	l := ledger.New(broken, ledgertest.NewClient(t, server, "alice"), ledgertest.NewSource(t, "alice"),
		ledger.WithClock(func() time.Time { return ledgertest.Now }),
		ledger.WithLogger(slog.New(logs)),
	)
	require.NoError(t, l.Load(t.Context()))

	// act
	book, loan, err := l.RecordBorrow(t.Context(), "b1", ledgertest.Day(7))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableQuantity)
	stored, ok := l.Store().Book("b1")
	require.True(t, ok)
	assert.Equal(t, 1, stored.Book.AvailableQuantity)
	assert.Contains(t, stored.ActiveLoans, loan.ID)
	assert.Len(t, logs.Records("ledger change confirmed but not journaled"), 1)
	assert.Empty(t, logs.Records("ledger operation failed"))

	// the next loan sync journals what the server confirmed
	repaired, _ := givenLedgerOn(t, j, server, "alice")
	changes, syncErr := repaired.SyncLoans(t.Context())
	require.NoError(t, syncErr)
	assert.Positive(t, changes)
	require.Len(t, repaired.Store().ActiveLoans("alice"), 1)
	assert.Equal(t, loan.ID, repaired.Store().ActiveLoans("alice")[0].ID)
}
