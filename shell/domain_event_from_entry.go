package shell

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
)

var (
	ErrMappingToDomainEventFailed           = errors.New("mapping to domain event failed")
	ErrMappingToDomainEventUnknownEventType = errors.New("unknown event type")
)

// DomainEventsFrom converts entries in journal order.
func DomainEventsFrom(entries journal.Entries) (core.DomainEvents, error) {
	domainEvents := make(core.DomainEvents, 0, len(entries))

	for _, entry := range entries {
		domainEvent, err := DomainEventFrom(entry)
		if err != nil {
			return nil, err
		}

		domainEvents = append(domainEvents, domainEvent)
	}

	return domainEvents, nil
}

// DomainEventFrom converts one entry into its domain event.
func DomainEventFrom(entry journal.Entry) (core.DomainEvent, error) {
	switch entry.Kind {
	case core.BookSyncedEventType:
		return unmarshal[core.BookSynced](entry.PayloadJSON)

	case core.BookRemovedEventType:
		return unmarshal[core.BookRemoved](entry.PayloadJSON)

	case core.BookBorrowedEventType:
		return unmarshal[core.BookBorrowed](entry.PayloadJSON)

	case core.BookReturnedEventType:
		return unmarshal[core.BookReturned](entry.PayloadJSON)

	case core.BorrowingBookFailedEventType:
		return unmarshal[core.BorrowingBookFailed](entry.PayloadJSON)

	case core.ReturningBookFailedEventType:
		return unmarshal[core.ReturningBookFailed](entry.PayloadJSON)
	}

	return nil, errors.Join(ErrMappingToDomainEventFailed, ErrMappingToDomainEventUnknownEventType)
}

func unmarshal[E core.DomainEvent](payloadJSON []byte) (core.DomainEvent, error) {
	var event E

	if err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &event); err != nil {
		return nil, errors.Join(ErrMappingToDomainEventFailed, err)
	}

	return event, nil
}
