// Package sqlengine runs the journal protocol on any SQL database reachable through adapters.DBAdapter.
package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/journal/internal/adapters"
)

const (
	logMsgBuildQueryFailed    = "failed to build journal query"
	logMsgDBQueryFailed       = "journal query execution failed"
	logMsgCloseRowsFailed     = "failed to close journal rows"
	logMsgScanRowFailed       = "failed to scan journal row"
	logMsgBuildEntryFailed    = "failed to build entry from journal row"
	logMsgDBExecFailed        = "journal execution failed during append"
	logMsgRowsAffectedFailed  = "failed to get rows affected count"
	logMsgQueryCompleted      = "query completed"
	logMsgEntriesAppended     = "entries appended"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "journal operation: "
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrKind               = "kind"
	logAttrEntryCount         = "entry_count"
	logAttrDurationMS         = "duration_ms"
	logAttrExpectedEntries    = "expected_entries"
	logAttrRowsAffected       = "rows_affected"
	logAttrExpectedPosition   = "expected_position"
	logActionQuery            = "query"
	logActionAppend           = "append"
	logActionExec             = "exec"
)

// Engine is the shared implementation behind postgresjournal and sqlitejournal.
type Engine struct {
	db       adapters.DBAdapter
	builder  builder
	settings journal.Settings
	name     string
}

// New returns an Engine. name identifies the database system in spans and metrics.
func New(db adapters.DBAdapter, dialect Dialect, settings journal.Settings, name string) Engine {
	return Engine{
		db:       db,
		builder:  builder{dialect: dialect, tableName: settings.TableName},
		settings: settings,
		name:     name,
	}
}

// TableName returns the configured journal table.
func (e Engine) TableName() string {
	return e.settings.TableName
}

type queryResultRow struct {
	kind       string
	occurredAt occurredAtValue
	payload    []byte
	metadata   []byte
	position   journal.Position
}

// Query returns the entries selected by filter and the Position of that stream.
func (e Engine) Query(ctx context.Context, filter journal.Filter) (journal.Entries, journal.Position, error) {
	ctx, obs := e.startObservation(ctx, operationQuery)

	sqlQuery, buildErr := e.builder.selectQuery(filter)
	if buildErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, buildErr)
		obs.finishError(errorTypeBuildQuery)

		return nil, 0, buildErr
	}

	start := time.Now()
	rows, queryErr := e.db.Query(ctx, sqlQuery)
	e.logQueryWithDuration(ctx, sqlQuery, logActionQuery, time.Since(start))

	if queryErr != nil {
		e.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		obs.finishError(errorTypeDatabaseQuery)

		return nil, 0, errors.Join(journal.ErrQueryingEntriesFailed, queryErr)
	}
	defer e.closeRows(ctx, rows)

	entries, position, scanErr := e.processQueryResults(ctx, rows)
	if scanErr != nil {
		obs.finishError(errorTypeRowScan)

		return nil, 0, scanErr
	}

	duration := time.Since(start)
	e.logOperation(ctx, logMsgQueryCompleted, logAttrEntryCount, len(entries), logAttrDurationMS, toMilliseconds(duration))
	obs.finishQuerySuccess(len(entries), position)

	return entries, position, nil
}

func (e Engine) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		e.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (e Engine) processQueryResults(ctx context.Context, rows adapters.DBRows) (journal.Entries, journal.Position, error) {
	result := queryResultRow{}
	entries := make(journal.Entries, 0)
	position := journal.Position(0)

	for rows.Next() {
		scanErr := rows.Scan(&result.kind, &result.occurredAt, &result.payload, &result.metadata, &result.position)
		if scanErr != nil {
			e.logError(ctx, logMsgScanRowFailed, scanErr)

			return nil, 0, errors.Join(journal.ErrScanningDBRowFailed, scanErr)
		}

		entry, buildErr := journal.BuildEntry(result.kind, result.occurredAt.t, result.payload, result.metadata)
		if buildErr != nil {
			e.logError(ctx, logMsgBuildEntryFailed, buildErr, logAttrKind, result.kind)

			return nil, 0, errors.Join(journal.ErrScanningDBRowFailed, buildErr)
		}

		entries = append(entries, entry)
		position = result.position
	}

	if iterErr := rows.Err(); iterErr != nil {
		e.logError(ctx, logMsgScanRowFailed, iterErr)

		return nil, 0, errors.Join(journal.ErrScanningDBRowFailed, iterErr)
	}

	return entries, position, nil
}

// Append inserts entry and more atomically if the stream selected by filter is still at expected.
// filter must be the one used for the Query the decision was based on.
func (e Engine) Append(
	ctx context.Context,
	filter journal.Filter,
	expected journal.Position,
	entry journal.Entry,
	more ...journal.Entry,
) error {

	ctx, obs := e.startObservation(ctx, operationAppend)

	allEntries := append(journal.Entries{entry}, more...)

	sqlQuery, buildErr := e.builder.appendQuery(allEntries, filter, expected)
	if buildErr != nil {
		e.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrEntryCount, len(allEntries))
		obs.finishError(errorTypeBuildQuery)

		return buildErr
	}

	start := time.Now()
	result, execErr := e.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	e.logQueryWithDuration(ctx, sqlQuery, logActionAppend, duration)

	if execErr != nil {
		e.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		obs.finishError(errorTypeDatabaseExec)

		return errors.Join(journal.ErrAppendingEntryFailed, execErr)
	}

	rowsAffected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		e.logError(ctx, logMsgRowsAffectedFailed, rowsErr)
		obs.finishError(errorTypeRowsAffected)

		return errors.Join(journal.ErrGettingRowsAffectedFailed, rowsErr)
	}

	if rowsAffected < int64(len(allEntries)) {
		e.logOperation(
			ctx,
			logMsgConcurrencyConflict,
			logAttrExpectedEntries, len(allEntries),
			logAttrRowsAffected, rowsAffected,
			logAttrExpectedPosition, expected,
		)
		obs.finishConflict()

		return journal.ErrConcurrencyConflict
	}

	e.logOperation(ctx, logMsgEntriesAppended, logAttrEntryCount, len(allEntries), logAttrDurationMS, toMilliseconds(duration))
	obs.finishAppendSuccess(len(allEntries))

	return nil
}

// Exec runs a statement that is not part of the journal protocol, e.g. schema DDL.
func (e Engine) Exec(ctx context.Context, statement string) error {
	start := time.Now()
	_, err := e.db.Exec(ctx, statement)
	e.logQueryWithDuration(ctx, statement, logActionExec, time.Since(start))

	return err
}

// occurredAtValue accepts the timestamp representations of the supported drivers.
type occurredAtValue struct {
	t time.Time
}

var _ sql.Scanner = (*occurredAtValue)(nil)

func (v *occurredAtValue) Scan(src any) error {
	switch typed := src.(type) {
	case time.Time:
		v.t = typed
	case string:
		return v.parse(typed)
	case []byte:
		return v.parse(string(typed))
	default:
		return fmt.Errorf("unsupported occurred_at type %T", src)
	}

	return nil
}

func (v *occurredAtValue) parse(raw string) error {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return err
	}

	v.t = t

	return nil
}
