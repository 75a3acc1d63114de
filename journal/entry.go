package journal

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var (
	ErrInvalidPayloadJSON  = errors.New("payload json is not valid")
	ErrInvalidMetadataJSON = errors.New("metadata json is not valid")
	ErrEmptyEntryKind      = errors.New("entry kind must not be empty")
)

// Entry is one persisted domain event, already serialized.
type Entry struct {
	Kind         string
	OccurredAt   time.Time
	PayloadJSON  []byte
	MetadataJSON []byte
}

// Entries is a slice of Entry in journal order.
type Entries = []Entry

// BuildEntry validates the raw parts and returns an Entry.
func BuildEntry(kind string, occurredAt time.Time, payloadJSON []byte, metadataJSON []byte) (Entry, error) {
	if kind == "" {
		return Entry{}, ErrEmptyEntryKind
	}

	if !jsoniter.Valid(payloadJSON) {
		return Entry{}, ErrInvalidPayloadJSON
	}

	if !jsoniter.Valid(metadataJSON) {
		return Entry{}, ErrInvalidMetadataJSON
	}

	return Entry{
		Kind:         kind,
		OccurredAt:   occurredAt,
		PayloadJSON:  payloadJSON,
		MetadataJSON: metadataJSON,
	}, nil
}
