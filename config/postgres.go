package config

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const (
	maxPoolConnections = int32(8)
	minPoolConnections = int32(1)
	maxOpenConnections = 8
	maxIdleConnections = 2
	maxConnLifetime    = time.Hour
	maxConnIdleTime    = time.Minute * 5
	healthCheckPeriod  = time.Minute
	connectTimeout     = time.Second * 5
	postgresDriverName = "postgres"
)

var ErrConnectingDatabase = errors.New("connecting to the database failed")

// PostgresPGXPoolConfig parses dsn and applies the pool tuning.
func PostgresPGXPoolConfig(dsn string) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	dbConfig.MaxConns = maxPoolConnections
	dbConfig.MinConns = minPoolConnections
	dbConfig.MaxConnLifetime = maxConnLifetime
	dbConfig.MaxConnIdleTime = maxConnIdleTime
	dbConfig.HealthCheckPeriod = healthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = connectTimeout

	return dbConfig, nil
}

// PostgresPGXPool opens and pings a pgx pool.
func PostgresPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	dbConfig, err := PostgresPGXPoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	return pool, nil
}

// PostgresSQLDB opens and pings a database/sql pool with the lib/pq driver.
func PostgresSQLDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(postgresDriverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	tune(db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	return db, nil
}

// PostgresSQLX opens and pings a sqlx pool with the lib/pq driver.
func PostgresSQLX(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(postgresDriverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	tune(db.DB)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, errors.Join(ErrConnectingDatabase, err)
	}

	return db, nil
}

func tune(db *sql.DB) {
	db.SetMaxOpenConns(maxOpenConnections)
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxLifetime(maxConnLifetime)
	db.SetConnMaxIdleTime(maxConnIdleTime)
}
