package catalog

import (
	"errors"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
)

// ValidateChange checks catalog input before anything is sent.
func ValidateChange(book core.Book, ownerID core.BorrowerIDString, needsID bool) error {
	if ownerID == "" {
		return core.ErrUnauthenticated
	}

	if needsID && book.ID == "" {
		return errors.Join(core.ErrInvalidBook, errors.New("book ID is required"))
	}

	// availability is the server's business on updates
	if !needsID {
		return book.Validate()
	}

	book.AvailableQuantity = 0

	return book.Validate()
}

// DecideRemoval tells whether a removal accepted by the server still has to be journaled.
func DecideRemoval(history core.DomainEvents, command RemoveCommand) core.DecisionResult {
	s := core.ProjectBookState(history, command.BookID)
	if s.Removed {
		return core.IdempotentDecision()
	}

	return core.SuccessDecision(core.BuildBookRemoved(command.BookID, command.OccurredAt))
}

func BuildEventFilter(bookID core.BookIDString) journal.Filter {
	return journal.BuildFilter().
		Matching().
		AnyKindOf(
			core.BookSyncedEventType,
			core.BookRemovedEventType,
			core.BookBorrowedEventType,
			core.BookReturnedEventType,
		).
		AndAnyPredicateOf(journal.P("BookID", bookID)).
		Finalize()
}
