package core

import (
	"time"
)

const BookSyncedEventType = "BookSynced"

// BookSynced records the server's representation of a book, fetched or returned by a catalog call.
type BookSynced struct {
	BookID     BookIDString
	Book       Book
	OccurredAt OccurredAtTS
}

func BuildBookSynced(book Book, occurredAt time.Time) BookSynced {
	return BookSynced{
		BookID:     book.ID,
		Book:       book,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

func (e BookSynced) EventType() string {
	return BookSyncedEventType
}

func (e BookSynced) HasOccurredAt() time.Time {
	return e.OccurredAt
}

func (e BookSynced) IsErrorEvent() bool {
	return false
}

func (e BookSynced) ForBook() BookIDString {
	return e.BookID
}
