package core

import (
	"time"
)

const BookRemovedEventType = "BookRemoved"

// BookRemoved records that a book no longer exists on the server.
type BookRemoved struct {
	BookID     BookIDString
	OccurredAt OccurredAtTS
}

func BuildBookRemoved(bookID BookIDString, occurredAt time.Time) BookRemoved {
	return BookRemoved{
		BookID:     bookID,
		OccurredAt: ToOccurredAt(occurredAt),
	}
}

func (e BookRemoved) EventType() string {
	return BookRemovedEventType
}

func (e BookRemoved) HasOccurredAt() time.Time {
	return e.OccurredAt
}

func (e BookRemoved) IsErrorEvent() bool {
	return false
}

func (e BookRemoved) ForBook() BookIDString {
	return e.BookID
}
