// Package sqlitejournal stores the ledger journal in an embedded SQLite database (modernc.org/sqlite,
// no cgo). It is the default for a single client: the file lives next to the user's settings and
// all access goes through one connection, which makes every conditional append atomic.
package sqlitejournal
