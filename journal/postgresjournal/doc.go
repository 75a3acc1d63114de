// Package postgresjournal stores the ledger journal in PostgreSQL.
//
// It can be built from a pgxpool.Pool (optionally with a read replica used for eventually
// consistent reads), from a sql.DB opened with lib/pq, or from a sqlx.DB. Payload predicates use
// JSONB containment, so a GIN index on the payload column (see CreateSchema) serves every filter.
//
// Table layout:
//
//	sequence_number BIGSERIAL PRIMARY KEY
//	kind            TEXT NOT NULL
//	occurred_at     TIMESTAMPTZ NOT NULL
//	payload         JSONB NOT NULL
//	metadata        JSONB NOT NULL
//	appended_at     TIMESTAMPTZ NOT NULL DEFAULT now()
package postgresjournal
