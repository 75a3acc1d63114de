// Package catalog implements the management of a user's own catalog entries and the catalog
// listing. Input is validated before the API is called; every accepted change is journaled as
// the server's snapshot of the book (or its removal).
package catalog
