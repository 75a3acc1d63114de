// Package borrowedbooks implements the query for the borrower's active loans, each with its
// book and due status, the loan due first leading.
package borrowedbooks
