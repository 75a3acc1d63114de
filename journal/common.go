package journal

import (
	"errors"
)

var (
	ErrEmptyTableNameSupplied    = errors.New("empty journal table name supplied")
	ErrNilDatabaseConnection     = errors.New("database connection must not be nil")
	ErrConcurrencyConflict       = errors.New("concurrency conflict, the stream moved past the expected position")
	ErrBuildingQueryFailed       = errors.New("building journal query failed")
	ErrQueryingEntriesFailed     = errors.New("querying journal entries failed")
	ErrScanningDBRowFailed       = errors.New("scanning journal row failed")
	ErrAppendingEntryFailed      = errors.New("appending journal entry failed")
	ErrGettingRowsAffectedFailed = errors.New("getting rows affected failed")
	ErrCreatingSchemaFailed      = errors.New("creating journal schema failed")
)

// Position is the highest sequence number of the dynamic stream a Filter selected.
// Zero means the stream was empty.
type Position = uint
