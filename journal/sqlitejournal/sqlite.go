package sqlitejournal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	_ "modernc.org/sqlite" // driver

	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/journal/internal/adapters"
	"github.com/bookverse/borrowledger/journal/internal/sqlengine"
)

const (
	driverName = "sqlite"
	dbSystem   = "sqlite"
	inMemory   = ":memory:"
)

var dialect = sqlengine.Dialect{
	Name:          "sqlite3",
	Predicate:     jsonExtractPredicate,
	CastText:      "?",
	CastTimestamp: "?",
	CastJSON:      "?",
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// jsonExtractPredicate renders json_extract(payload, '$."key"') = 'val'.
func jsonExtractPredicate(key, val string) (exp.Expression, error) {
	return goqu.L("json_extract(`payload`, ?) = ?", fmt.Sprintf("$.%q", key), val), nil
}

// Journal is a SQLite backed journal.
type Journal struct {
	engine sqlengine.Engine
	db     *sql.DB
	owned  bool
}

// DSN returns the modernc DSN for path. ":memory:" yields a private in-memory database.
func DSN(path string) string {
	if path == inMemory {
		return "file::memory:?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	}

	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
}

// Open opens (or creates) the database at path and makes sure the schema exists.
// The returned Journal owns the connection and must be closed.
func Open(ctx context.Context, path string, options ...journal.Option) (*Journal, error) {
	db, err := sql.Open(driverName, DSN(path))
	if err != nil {
		return nil, err
	}

	// one writer keeps the conditional append atomic and an in-memory database alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j, err := NewJournalFromSQLDB(db, options...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	j.owned = true

	if err := j.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return j, nil
}

// NewJournalFromSQLDB creates a Journal on an already opened modernc sqlite connection.
func NewJournalFromSQLDB(db *sql.DB, options ...journal.Option) (*Journal, error) {
	if db == nil {
		return nil, journal.ErrNilDatabaseConnection
	}

	settings, err := journal.ApplyOptions(options...)
	if err != nil {
		return nil, err
	}

	return &Journal{
		engine: sqlengine.New(adapters.NewSQLAdapter(db), dialect, settings, dbSystem),
		db:     db,
	}, nil
}

// Query returns the entries matching filter and the Position of that stream.
func (j *Journal) Query(ctx context.Context, filter journal.Filter) (journal.Entries, journal.Position, error) {
	return j.engine.Query(ctx, filter)
}

// Append appends entries if the stream selected by filter did not move past expected.
func (j *Journal) Append(
	ctx context.Context,
	filter journal.Filter,
	expected journal.Position,
	entry journal.Entry,
	more ...journal.Entry,
) error {

	return j.engine.Append(ctx, filter, expected, entry, more...)
}

// CreateSchema creates the journal table and its index if they are missing.
func (j *Journal) CreateSchema(ctx context.Context) error {
	table := j.engine.TableName()
	if !tableNamePattern.MatchString(table) {
		return errors.Join(journal.ErrCreatingSchemaFailed, fmt.Errorf("invalid table name %q", table))
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	sequence_number INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	occurred_at TEXT NOT NULL,
	payload TEXT NOT NULL,
	metadata TEXT NOT NULL,
	appended_at TEXT NOT NULL DEFAULT (strftime('%%Y-%%m-%%dT%%H:%%M:%%fZ', 'now'))
)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_kind_idx ON %s (kind)`, table, table),
	}

	for _, statement := range statements {
		if err := j.engine.Exec(ctx, statement); err != nil {
			return errors.Join(journal.ErrCreatingSchemaFailed, err)
		}
	}

	return nil
}

// Close closes the connection if the Journal opened it.
func (j *Journal) Close() error {
	if !j.owned {
		return nil
	}

	return j.db.Close()
}
