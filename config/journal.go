package config

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookverse/borrowledger/journal"
	"github.com/bookverse/borrowledger/journal/postgresjournal"
	"github.com/bookverse/borrowledger/journal/sqlitejournal"
)

// Engine is what both journal engines offer.
type Engine interface {
	Query(ctx context.Context, filter journal.Filter) (journal.Entries, journal.Position, error)
	Append(ctx context.Context, filter journal.Filter, expected journal.Position, entry journal.Entry, more ...journal.Entry) error
	CreateSchema(ctx context.Context) error
}

// OpenJournal opens the configured engine. close releases its connections.
func (c Config) OpenJournal(ctx context.Context, options ...journal.Option) (Engine, func() error, error) {
	options = append([]journal.Option{journal.WithTableName(c.JournalTable)}, options...)

	switch c.JournalDriver {
	case DriverSQLite, "":
		j, err := sqlitejournal.Open(ctx, c.SQLitePath, options...)
		if err != nil {
			return nil, nil, err
		}

		return j, j.Close, nil

	case DriverPGX:
		primary, err := PostgresPGXPool(ctx, c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		var replica *pgxpool.Pool
		if c.PostgresReplicaDSN != "" {
			if replica, err = PostgresPGXPool(ctx, c.PostgresReplicaDSN); err != nil {
				primary.Close()

				return nil, nil, err
			}
		}

		closer := func() error {
			primary.Close()
			if replica != nil {
				replica.Close()
			}

			return nil
		}

		j, err := postgresjournal.NewJournalFromPGXPoolAndReplica(primary, replica, options...)
		if err != nil {
			_ = closer()

			return nil, nil, err
		}

		return j, closer, nil

	case DriverSQL:
		db, err := PostgresSQLDB(ctx, c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		j, err := postgresjournal.NewJournalFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()

			return nil, nil, err
		}

		return j, db.Close, nil

	case DriverSQLX:
		db, err := PostgresSQLX(ctx, c.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		j, err := postgresjournal.NewJournalFromSQLX(db, options...)
		if err != nil {
			_ = db.Close()

			return nil, nil, err
		}

		return j, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: journal driver %q", ErrInvalidConfig, c.JournalDriver)
	}
}
