package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_BuildEntry_ErrorCases(t *testing.T) {
	validTime := time.Now()
	validPayloadJSON := []byte(`{"BookID": "b-1"}`)
	validMetadataJSON := []byte(`{"MessageID": "m-1"}`)

	tests := []struct {
		name         string
		kind         string
		payloadJSON  []byte
		metadataJSON []byte
		expectedErr  error
	}{
		{
			name:         "empty kind",
			kind:         "",
			payloadJSON:  validPayloadJSON,
			metadataJSON: validMetadataJSON,
			expectedErr:  ErrEmptyEntryKind,
		},
		{
			name:         "invalid payload JSON",
			kind:         "BookBorrowed",
			payloadJSON:  []byte(`{"BookID": b-1}`),
			metadataJSON: validMetadataJSON,
			expectedErr:  ErrInvalidPayloadJSON,
		},
		{
			name:         "empty metadata JSON",
			kind:         "BookBorrowed",
			payloadJSON:  validPayloadJSON,
			metadataJSON: []byte(``),
			expectedErr:  ErrInvalidMetadataJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildEntry(tt.kind, validTime, tt.payloadJSON, tt.metadataJSON)

			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func Test_BuildEntry_Success(t *testing.T) {
	occurredAt := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	entry, err := BuildEntry("BookBorrowed", occurredAt, []byte(`{}`), []byte(`{}`))

	assert.NoError(t, err)
	assert.Equal(t, "BookBorrowed", entry.Kind)
	assert.Equal(t, occurredAt, entry.OccurredAt)
}

func Test_ApplyOptions(t *testing.T) {
	settings, err := ApplyOptions()
	assert.NoError(t, err)
	assert.Equal(t, DefaultTableName, settings.TableName)

	_, err = ApplyOptions(WithTableName(""))
	assert.ErrorIs(t, err, ErrEmptyTableNameSupplied)

	settings, err = ApplyOptions(WithTableName("events"))
	assert.NoError(t, err)
	assert.Equal(t, "events", settings.TableName)
}
