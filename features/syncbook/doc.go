// Package syncbook implements the resync of one book: the server's snapshot is journaled
// whenever it differs from what the journal knows, and a book the server no longer has is
// journaled as removed.
package syncbook
