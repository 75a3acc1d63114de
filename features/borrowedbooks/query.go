package borrowedbooks

import (
	"time"

	"github.com/bookverse/borrowledger/core"
)

const (
	queryType = "BorrowedBooks"
)

type Query struct {
	BorrowerID       core.BorrowerIDString
	Now              time.Time
	UrgentWindowDays int
}

// BuildQuery creates a Query classifying due status with the default urgent window.
func BuildQuery(borrowerID core.BorrowerIDString, now time.Time) Query {
	return Query{
		BorrowerID:       borrowerID,
		Now:              now,
		UrgentWindowDays: core.UrgentWindowDays,
	}
}

func (q Query) QueryType() string {
	return queryType
}
