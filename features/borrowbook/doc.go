// Package borrowbook implements borrowing a copy of a book.
//
// The journal history of the book is projected and checked against the borrow preconditions
// by the pure Decide function. Only when they hold is the remote API asked to lend the copy,
// and the loan the server answers with is what gets journaled. A rejection by the server is
// journaled as a BorrowingBookFailed event; when the server reports the book as out of stock
// the book is fetched again and its fresh snapshot journaled as well.
//
// Borrowing a book the borrower already holds is idempotent: the existing loan is returned
// and the API is not called.
package borrowbook
