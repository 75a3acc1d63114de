package core

import (
	"time"
)

// DomainEvents is a slice of DomainEvent in journal order.
type DomainEvents = []DomainEvent

// DomainEvent is something that happened to a book in the ledger.
type DomainEvent interface {
	// EventType returns the journal kind of the event.
	EventType() string

	// HasOccurredAt returns when the event occurred.
	HasOccurredAt() time.Time

	// IsErrorEvent reports whether the event records a rejected operation.
	IsErrorEvent() bool

	// ForBook returns the book the event belongs to.
	ForBook() BookIDString
}
