// Package adapters hides the differences between pgxpool.Pool, sql.DB and sqlx.DB behind DBAdapter,
// so the journal engines run the same SQL against any of them.
package adapters
