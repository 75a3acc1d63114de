package adapters

import "context"

// DBAdapter is what a journal engine needs from a connection.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBRows iterates query results.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// DBResult reports the effect of an Exec.
type DBResult interface {
	RowsAffected() (int64, error)
}
