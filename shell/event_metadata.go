package shell

import (
	"errors"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/bookverse/borrowledger/journal"
)

var ErrMappingToEventMetadataFailed = errors.New("mapping to event metadata failed")

// EventMetadata links the entries one user action produced.
type EventMetadata struct {
	MessageID     string
	CausationID   string
	CorrelationID string
}

func BuildEventMetadata(messageID uuid.UUID, causationID uuid.UUID, correlationID uuid.UUID) EventMetadata {
	return EventMetadata{
		MessageID:     messageID.String(),
		CausationID:   causationID.String(),
		CorrelationID: correlationID.String(),
	}
}

// NewCommandMetadata starts a new correlation: the message is its own cause.
func NewCommandMetadata() EventMetadata {
	messageID := uuid.New()

	return BuildEventMetadata(messageID, messageID, messageID)
}

// CausedBy returns metadata for a follow-up entry within the same correlation.
func (m EventMetadata) CausedBy() EventMetadata {
	return EventMetadata{
		MessageID:     uuid.NewString(),
		CausationID:   m.MessageID,
		CorrelationID: m.CorrelationID,
	}
}

func EventMetadataFrom(entry journal.Entry) (EventMetadata, error) {
	metadata := EventMetadata{}

	if err := jsoniter.ConfigFastest.Unmarshal(entry.MetadataJSON, &metadata); err != nil {
		return EventMetadata{}, errors.Join(ErrMappingToEventMetadataFailed, err)
	}

	return metadata, nil
}
