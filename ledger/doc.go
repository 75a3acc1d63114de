// Package ledger is the BorrowLedger: the one place that borrows, returns, resyncs and classifies
// loans for the display layer.
//
// Every operation goes through its feature handler, which journals what the server decided.
// The journaled events are then applied to the Store, the read model keyed by Book ID, and
// relayed to the configured Publisher. Nothing else mutates the Store.
package ledger
