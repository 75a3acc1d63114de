package ledger

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/shell"
)

// EventStore is the read side of the journal the Store is rebuilt from.
type EventStore interface {
	Query(ctx context.Context, filter journal.Filter) (journal.Entries, journal.Position, error)
}

// Store is the read model keyed by Book ID. It only changes by applying journaled events.
type Store struct {
	mu       sync.RWMutex
	books    map[core.BookIDString]core.BookState
	loans    map[core.LoanIDString]core.BookIDString
	position journal.Position
}

func NewStore() *Store {
	return &Store{
		books: make(map[core.BookIDString]core.BookState),
		loans: make(map[core.LoanIDString]core.BookIDString),
	}
}

// Load replaces the content with the projection of the whole journal.
func (s *Store) Load(ctx context.Context, j EventStore) error {
	entries, position, err := j.Query(journal.WithStrongConsistency(ctx), journal.BuildFilter().MatchingAnyEntry())
	if err != nil {
		return err
	}

	history, err := shell.DomainEventsFrom(entries)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.books = make(map[core.BookIDString]core.BookState)
	s.loans = make(map[core.LoanIDString]core.BookIDString)
	s.apply(history...)
	s.position = position

	return nil
}

// Apply folds journaled events in. Failure events carry no state and are skipped.
func (s *Store) Apply(events ...core.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(events...)
}

func (s *Store) apply(events ...core.DomainEvent) {
	for _, event := range events {
		if event == nil || event.IsErrorEvent() {
			continue
		}

		bookID := event.ForBook()

		state, ok := s.books[bookID]
		if !ok {
			state = core.BookState{Book: core.Book{ID: bookID}}
		}

		state.Apply(event)
		s.books[bookID] = state

		switch e := event.(type) {
		case core.BookBorrowed:
			s.loans[e.LoanID] = e.BookID
		case core.BookReturned:
			delete(s.loans, e.LoanID)
		}
	}
}

// Book returns a copy of the book's state.
func (s *Store) Book(bookID core.BookIDString) (core.BookState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.books[bookID]
	if !ok {
		return core.BookState{}, false
	}

	state.ActiveLoans = maps.Clone(state.ActiveLoans)

	return state, true
}

// BookOfLoan finds the book of an active loan.
func (s *Store) BookOfLoan(loanID core.LoanIDString) (core.BookIDString, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookID, ok := s.loans[loanID]

	return bookID, ok
}

// ActiveLoans returns the borrower's active loans, due first leading.
func (s *Store) ActiveLoans(borrower core.BorrowerIDString) []core.Loan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var loans []core.Loan

	for _, state := range s.books {
		for _, loan := range state.ActiveLoans {
			if loan.Borrower == borrower {
				loans = append(loans, loan)
			}
		}
	}

	slices.SortFunc(loans, core.CompareLoansByReturnDate)

	return loans
}

// Books returns the known, not removed books ordered by ID.
func (s *Store) Books() []core.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	books := make([]core.Book, 0, len(s.books))
	for _, id := range slices.Sorted(maps.Keys(s.books)) {
		if state := s.books[id]; state.Known && !state.Removed {
			books = append(books, state.Book)
		}
	}

	return books
}

// Position is the journal position of the last Load.
func (s *Store) Position() journal.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.position
}
