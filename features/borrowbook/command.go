package borrowbook

import (
	"time"

	"github.com/bookverse/borrowledger/core"
)

const (
	commandType = "BorrowBook"
)

// Command is the intent of a borrower to take one copy of a book until ReturnDate.
type Command struct {
	BookID     core.BookIDString
	BorrowerID core.BorrowerIDString
	ReturnDate time.Time
	Today      time.Time
	OccurredAt core.OccurredAtTS
}

func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a Command. Today is the calendar day of now in now's location, so a
// return date is compared with the borrower's today rather than UTC's.
func BuildCommand(
	bookID core.BookIDString,
	borrowerID core.BorrowerIDString,
	returnDate time.Time,
	now time.Time,
) Command {

	return Command{
		BookID:     bookID,
		BorrowerID: borrowerID,
		ReturnDate: core.CalendarDay(returnDate),
		Today:      core.CalendarDay(now),
		OccurredAt: core.ToOccurredAt(now),
	}
}
