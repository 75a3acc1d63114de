// Package journal defines the append-only event journal the borrow ledger is projected from.
//
// A journal stores Entry values in a single table ordered by a sequence number. Readers select a
// "dynamic stream" of entries with a Filter (entry kinds combined with payload predicates) and get
// back the Position of that stream, which is the highest sequence number it contained at query
// time. Writers hand the same Filter and Position back to Append, which only succeeds if no entry
// matching the Filter was appended in the meantime. Otherwise Append fails with
// ErrConcurrencyConflict and the caller queries again.
//
// Engines live in sub-packages:
//
//   - postgresjournal: PostgreSQL via pgx, database/sql (lib/pq) or sqlx
//   - sqlitejournal: embedded SQLite via modernc.org/sqlite, the default for a single client
package journal
