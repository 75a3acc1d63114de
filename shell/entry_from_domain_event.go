package shell

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/journal"
)

var (
	ErrMappingToEntryFailedForDomainEvent = errors.New("mapping to journal entry failed for domain event")
	ErrMappingToEntryFailedForMetadata    = errors.New("mapping to journal entry failed for metadata")
)

// EntryFrom serializes a domain event and its metadata.
func EntryFrom(event core.DomainEvent, metadata EventMetadata) (journal.Entry, error) {
	payloadJSON, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
	if err != nil {
		return journal.Entry{}, errors.Join(ErrMappingToEntryFailedForDomainEvent, err)
	}

	metadataJSON, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(metadata)
	if err != nil {
		return journal.Entry{}, errors.Join(ErrMappingToEntryFailedForMetadata, err)
	}

	entry, err := journal.BuildEntry(event.EventType(), event.HasOccurredAt(), payloadJSON, metadataJSON)
	if err != nil {
		return journal.Entry{}, errors.Join(ErrMappingToEntryFailedForDomainEvent, err)
	}

	return entry, nil
}

// EntriesFrom serializes several events. Each gets its own message ID within metadata's correlation.
func EntriesFrom(events core.DomainEvents, metadata EventMetadata) (journal.Entries, error) {
	entries := make(journal.Entries, 0, len(events))

	for i, event := range events {
		eventMetadata := metadata
		if i > 0 {
			eventMetadata = metadata.CausedBy()
		}

		entry, err := EntryFrom(event, eventMetadata)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
