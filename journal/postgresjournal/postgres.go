package postgresjournal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/journal/internal/adapters"
	"github.com/bookverse/borrowledger/journal/internal/sqlengine"
)

const dbSystem = "postgresql"

var dialect = sqlengine.Dialect{
	Name:          "postgres",
	Predicate:     containsPredicate,
	CastText:      "?::text",
	CastTimestamp: "?::timestamp with time zone",
	CastJSON:      "?::jsonb",
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// containsPredicate renders payload @> '{"key": "val"}'.
func containsPredicate(key, val string) (exp.Expression, error) {
	document, err := jsoniter.ConfigFastest.Marshal(map[string]string{key: val})
	if err != nil {
		return nil, err
	}

	return goqu.L(`"payload" @> ?::jsonb`, string(document)), nil
}

// Journal is a PostgreSQL backed journal.
type Journal struct {
	engine sqlengine.Engine
}

// NewJournalFromPGXPool creates a Journal on a pgx pool.
func NewJournalFromPGXPool(db *pgxpool.Pool, options ...journal.Option) (*Journal, error) {
	if db == nil {
		return nil, journal.ErrNilDatabaseConnection
	}

	return newJournal(adapters.NewPGXAdapter(db), options...)
}

// NewJournalFromPGXPoolAndReplica creates a Journal that reads from replica when the context
// asks for eventual consistency.
func NewJournalFromPGXPoolAndReplica(primary *pgxpool.Pool, replica *pgxpool.Pool, options ...journal.Option) (*Journal, error) {
	if primary == nil {
		return nil, journal.ErrNilDatabaseConnection
	}

	if replica == nil {
		return newJournal(adapters.NewPGXAdapter(primary), options...)
	}

	return newJournal(adapters.NewPGXAdapterWithReplica(primary, replica), options...)
}

// NewJournalFromSQLDB creates a Journal on a sql.DB, typically opened with the lib/pq driver.
func NewJournalFromSQLDB(db *sql.DB, options ...journal.Option) (*Journal, error) {
	if db == nil {
		return nil, journal.ErrNilDatabaseConnection
	}

	return newJournal(adapters.NewSQLAdapter(db), options...)
}

// NewJournalFromSQLX creates a Journal on a sqlx.DB.
func NewJournalFromSQLX(db *sqlx.DB, options ...journal.Option) (*Journal, error) {
	if db == nil {
		return nil, journal.ErrNilDatabaseConnection
	}

	return newJournal(adapters.NewSQLXAdapter(db), options...)
}

func newJournal(db adapters.DBAdapter, options ...journal.Option) (*Journal, error) {
	settings, err := journal.ApplyOptions(options...)
	if err != nil {
		return nil, err
	}

	return &Journal{engine: sqlengine.New(db, dialect, settings, dbSystem)}, nil
}

// Query returns the entries matching filter and the Position of that stream.
func (j *Journal) Query(ctx context.Context, filter journal.Filter) (journal.Entries, journal.Position, error) {
	return j.engine.Query(ctx, filter)
}

// Append appends entries if the stream selected by filter did not move past expected.
// It returns journal.ErrConcurrencyConflict otherwise.
func (j *Journal) Append(
	ctx context.Context,
	filter journal.Filter,
	expected journal.Position,
	entry journal.Entry,
	more ...journal.Entry,
) error {

	return j.engine.Append(ctx, filter, expected, entry, more...)
}

// CreateSchema creates the journal table and its indexes if they are missing.
func (j *Journal) CreateSchema(ctx context.Context) error {
	table := j.engine.TableName()
	if !tableNamePattern.MatchString(table) {
		return errors.Join(journal.ErrCreatingSchemaFailed, fmt.Errorf("invalid table name %q", table))
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	sequence_number BIGSERIAL PRIMARY KEY,
	kind TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL,
	metadata JSONB NOT NULL,
	appended_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_kind_idx ON %s (kind)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_payload_idx ON %s USING gin (payload jsonb_path_ops)`, table, table),
	}

	for _, statement := range statements {
		if err := j.engine.Exec(ctx, statement); err != nil {
			return errors.Join(journal.ErrCreatingSchemaFailed, err)
		}
	}

	return nil
}
