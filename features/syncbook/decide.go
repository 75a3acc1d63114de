package syncbook

import (
	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
)

// Decide compares the server's answer with the journal.
//
//	GIVEN: the book's history and the server's snapshot (found=false for a 404)
//	WHEN: SyncBook is received
//	THEN: BookSynced if the snapshot differs or the book was unknown or removed
//	THEN: BookRemoved if the server lost a book the journal knows
//	IDEMPOTENCY: the journal already agrees with the server
func Decide(history core.DomainEvents, command Command, remote core.Book, found bool) core.DecisionResult {
	s := core.ProjectBookState(history, command.BookID)

	if !found {
		if s.Known && !s.Removed {
			return core.SuccessDecision(core.BuildBookRemoved(command.BookID, command.OccurredAt))
		}

		return core.IdempotentDecision()
	}

	if s.Known && !s.Removed && s.Book == remote {
		return core.IdempotentDecision()
	}

	return core.SuccessDecision(core.BuildBookSynced(remote, command.OccurredAt))
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
