// Package core is the borrow ledger domain: books, loans, the availability bookkeeping of borrowing
// and returning, due date classification, and the domain events the ledger journal is made of.
//
// Everything in here is pure. Network access, persistence and clocks live in the outer packages,
// which pass "now" in explicitly.
package core
