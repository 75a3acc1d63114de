// Package returnbook implements giving a borrowed copy back.
//
// Only an active loan of the borrower can be returned; anything else is NotFound. The loan is
// closed in the journal with the book count the server answers with. If the server does not
// know the loan anymore it was closed elsewhere, so the book is resynced and the loan closed
// locally as well.
package returnbook
