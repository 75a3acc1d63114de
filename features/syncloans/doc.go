// Package syncloans reconciles the journal with the loans the server lists for the borrower.
//
// Loans only the server knows (borrowed on another device) are journaled as BookBorrowed,
// loans the journal still holds as active but the server no longer lists are closed with a
// BookReturned carrying the server's fresh count. Snapshots of the involved books are journaled
// whenever they changed.
package syncloans
