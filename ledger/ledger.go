package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/features/borrowbook"
	"github.com/bookverse/borrowledger/features/borrowedbooks"
	"github.com/bookverse/borrowledger/features/catalog"
	"github.com/bookverse/borrowledger/features/returnbook"
	"github.com/bookverse/borrowledger/features/syncbook"
	"github.com/bookverse/borrowledger/features/syncloans"
	"github.com/bookverse/borrowledger/identity"
	"github.com/bookverse/borrowledger/shell"
)

const (
	logMsgOperationSucceeded = "ledger operation succeeded"
	logMsgOperationFailed    = "ledger operation failed"
	logMsgPublishFailed      = "relaying ledger events failed"
	logMsgNotJournaled       = "ledger change confirmed but not journaled"

	logAttrOperation = "operation"
	logAttrBookID    = "book_id"
	logAttrEvents    = "events"
	logAttrErrorKind = "error_kind"
	logAttrError     = "error"
	logAttrAttempts  = "append_attempts"
)

// Journal is the journal engine the ledger runs on.
type Journal interface {
	shell.Journal
}

// Remote is the REST API client.
type Remote interface {
	borrowbook.Remote
	returnbook.Remote
	syncloans.Remote
	catalog.Remote
}

// Publisher relays journaled events to other parts of the system.
type Publisher interface {
	Publish(ctx context.Context, events core.DomainEvents) error
}

// Ledger is safe for concurrent use.
type Ledger struct {
	store            *Store
	journal          Journal
	identity         identity.Source
	publisher        Publisher
	logger           *slog.Logger
	now              func() time.Time
	urgentWindowDays int
	retryOptions     []shell.RetryOption
	observability    shell.Observability

	borrow    borrowbook.CommandHandler
	giveBack  returnbook.CommandHandler
	syncBook  syncbook.CommandHandler
	syncLoans syncloans.CommandHandler
	borrowed  borrowedbooks.QueryHandler
	catalog   catalog.CommandHandler
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(l *Ledger) {
		if publisher != nil {
			l.publisher = publisher
		}
	}
}

// WithClock replaces time.Now, e.g. in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func WithUrgentWindowDays(days int) Option {
	return func(l *Ledger) {
		if days >= 0 {
			l.urgentWindowDays = days
		}
	}
}

func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(l *Ledger) {
		l.retryOptions = opts
	}
}

func WithObservability(o shell.Observability) Option {
	return func(l *Ledger) {
		l.observability = o
	}
}

func New(j Journal, remote Remote, source identity.Source, opts ...Option) *Ledger {
	if source == nil {
		source = identity.Anonymous{}
	}

	l := &Ledger{
		store:            NewStore(),
		journal:          j,
		identity:         source,
		logger:           slog.New(slog.DiscardHandler),
		now:              time.Now,
		urgentWindowDays: core.UrgentWindowDays,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.borrow = borrowbook.NewCommandHandler(j, remote,
		borrowbook.WithRetryOptions(l.retryOptions...), borrowbook.WithObservability(l.observability))
	l.giveBack = returnbook.NewCommandHandler(j, remote,
		returnbook.WithRetryOptions(l.retryOptions...), returnbook.WithObservability(l.observability))
	l.syncBook = syncbook.NewCommandHandler(j, remote,
		syncbook.WithRetryOptions(l.retryOptions...), syncbook.WithObservability(l.observability))
	l.syncLoans = syncloans.NewCommandHandler(j, remote,
		syncloans.WithRetryOptions(l.retryOptions...), syncloans.WithObservability(l.observability))
	l.catalog = catalog.NewCommandHandler(j, remote,
		catalog.WithRetryOptions(l.retryOptions...), catalog.WithObservability(l.observability))
	l.borrowed = borrowedbooks.NewQueryHandler(j, borrowedbooks.WithObservability(l.observability))

	return l
}

// Load rebuilds the Store from the journal. Call it once before serving.
func (l *Ledger) Load(ctx context.Context) error {
	return l.store.Load(ctx, l.journal)
}

// Store exposes the read model.
func (l *Ledger) Store() *Store {
	return l.store
}

// Identity returns the current user, if authenticated.
func (l *Ledger) Identity(ctx context.Context) (identity.Identity, error) {
	current, err := l.identity.Current(ctx)
	if err != nil {
		return identity.Identity{}, err
	}

	if !current.Authenticated(l.now()) {
		return identity.Identity{}, core.ErrUnauthenticated
	}

	return current, nil
}

func (l *Ledger) borrower(ctx context.Context) core.BorrowerIDString {
	current, err := l.Identity(ctx)
	if err != nil {
		return ""
	}

	return current.BorrowerID()
}

// Book returns the book from the Store, resyncing it first when it was never seen.
func (l *Ledger) Book(ctx context.Context, bookID core.BookIDString) (core.Book, error) {
	state, ok := l.store.Book(bookID)
	if !ok || !state.Known {
		return l.Resync(ctx, bookID)
	}

	if state.Removed {
		return core.Book{}, core.ErrNotFound
	}

	return state.Book, nil
}

// CanBorrow tells whether the borrow action should be offered for the book.
func (l *Ledger) CanBorrow(ctx context.Context, bookID core.BookIDString) (bool, error) {
	book, err := l.Book(ctx, bookID)
	if err != nil {
		return false, err
	}

	state, _ := l.store.Book(bookID)
	borrower := l.borrower(ctx)
	_, hasActiveLoan := state.ActiveLoanOf(borrower)

	return core.CanBorrow(book, hasActiveLoan, borrower != ""), nil
}

// RecordBorrow borrows one copy until returnDate. The returned book and loan are the server's.
func (l *Ledger) RecordBorrow(ctx context.Context, bookID core.BookIDString, returnDate time.Time) (core.Book, core.Loan, error) {
	result, handlerResult, err := l.borrow.Handle(ctx, borrowbook.BuildCommand(bookID, l.borrower(ctx), returnDate, l.now()))
	l.settle(ctx, "borrow", bookID, result.Events, handlerResult, err)

	return result.Book, result.Loan, confirmed(err)
}

// RecordReturn returns the copy of an active loan.
func (l *Ledger) RecordReturn(ctx context.Context, loanID core.LoanIDString) (core.Book, core.Loan, error) {
	bookID, _ := l.store.BookOfLoan(loanID)

	result, handlerResult, err := l.giveBack.Handle(ctx, returnbook.BuildCommand(loanID, bookID, l.borrower(ctx), l.now()))
	l.settle(ctx, "return", bookID, result.Events, handlerResult, err)

	return result.Book, result.Loan, confirmed(err)
}

// ClassifyDueStatus classifies a loan with the configured urgent window.
func (l *Ledger) ClassifyDueStatus(loan core.Loan, now time.Time) core.DueStatus {
	return core.ClassifyDueStatusWithin(loan, now, l.urgentWindowDays)
}

// Borrowed lists the current user's active loans from the journal.
func (l *Ledger) Borrowed(ctx context.Context) (borrowedbooks.BorrowedBooks, error) {
	query := borrowedbooks.BuildQuery(l.borrower(ctx), l.now())
	query.UrgentWindowDays = l.urgentWindowDays

	return l.borrowed.Handle(ctx, query)
}

// Resync fetches the authoritative book and journals it if it changed.
func (l *Ledger) Resync(ctx context.Context, bookID core.BookIDString) (core.Book, error) {
	result, handlerResult, err := l.syncBook.Handle(ctx, syncbook.BuildCommand(bookID, l.now()))
	l.settle(ctx, "resync", bookID, result.Events, handlerResult, err)

	if err != nil {
		return core.Book{}, err
	}

	if !result.Found {
		return core.Book{}, core.ErrNotFound
	}

	return result.Book, nil
}

// SyncLoans reconciles the journal with the server's list of the user's loans and returns the
// number of journaled changes.
func (l *Ledger) SyncLoans(ctx context.Context) (int, error) {
	result, handlerResult, err := l.syncLoans.Handle(ctx, syncloans.BuildCommand(l.borrower(ctx), l.now()))
	l.settle(ctx, "sync_loans", "", result.Events, handlerResult, err)

	return len(result.Events), err
}

func (l *Ledger) AddBook(ctx context.Context, book core.Book) (core.Book, error) {
	result, handlerResult, err := l.catalog.Add(ctx, catalog.BuildAddCommand(book, l.borrower(ctx), l.now()))
	l.settle(ctx, "add_book", result.Book.ID, result.Events, handlerResult, err)

	return result.Book, err
}

func (l *Ledger) UpdateBook(ctx context.Context, book core.Book) (core.Book, error) {
	result, handlerResult, err := l.catalog.Update(ctx, catalog.BuildUpdateCommand(book, l.borrower(ctx), l.now()))
	l.settle(ctx, "update_book", book.ID, result.Events, handlerResult, err)

	return result.Book, err
}

func (l *Ledger) RemoveBook(ctx context.Context, bookID core.BookIDString) error {
	result, handlerResult, err := l.catalog.Remove(ctx, catalog.BuildRemoveCommand(bookID, l.borrower(ctx), l.now()))
	l.settle(ctx, "remove_book", bookID, result.Events, handlerResult, err)

	return err
}

// ListBooks searches the server's catalog, or lists the user's own entries.
func (l *Ledger) ListBooks(ctx context.Context, query string, mine bool) ([]core.Book, error) {
	return l.catalog.List(ctx, query, mine)
}

// settle applies journaled events to the Store, relays the successful ones and logs the outcome.
func (l *Ledger) settle(
	ctx context.Context,
	operation string,
	bookID core.BookIDString,
	events core.DomainEvents,
	handlerResult shell.HandlerResult,
	err error,
) {

	l.store.Apply(events...)

	relayed := make(core.DomainEvents, 0, len(events))
	for _, event := range events {
		if !event.IsErrorEvent() {
			relayed = append(relayed, event)
		}
	}

	if l.publisher != nil && len(relayed) > 0 {
		if publishErr := l.publisher.Publish(ctx, relayed); publishErr != nil {
			l.logger.WarnContext(ctx, logMsgPublishFailed, logAttrOperation, operation, logAttrError, publishErr.Error())
		}
	}

	args := []any{
		logAttrOperation, operation,
		logAttrBookID, bookID,
		logAttrEvents, len(events),
		logAttrAttempts, handlerResult.RetryAttempts,
	}

	if errors.Is(err, shell.ErrChangeNotJournaled) {
		l.logger.WarnContext(ctx, logMsgNotJournaled, append(args, logAttrError, err.Error())...)

		return
	}

	if err != nil {
		l.logger.WarnContext(ctx, logMsgOperationFailed,
			append(args, logAttrErrorKind, core.ErrorKind(err), logAttrError, err.Error())...)

		return
	}

	l.logger.InfoContext(ctx, logMsgOperationSucceeded, args...)
}

// confirmed drops a journaling failure of a change the server already made: the Store holds the
// change and the next SyncLoans journals it.
func confirmed(err error) error {
	if errors.Is(err, shell.ErrChangeNotJournaled) {
		return nil
	}

	return err
}
