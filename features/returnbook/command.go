package returnbook

import (
	"time"

	"github.com/bookverse/borrowledger/core"
)

const (
	commandType = "ReturnBook"
)

// Command is the intent to return the copy of a loan. BookID may be empty; the handler then
// looks it up in the journal.
type Command struct {
	LoanID     core.LoanIDString
	BookID     core.BookIDString
	BorrowerID core.BorrowerIDString
	OccurredAt core.OccurredAtTS
}

func (c Command) CommandType() string {
	return commandType
}

func BuildCommand(
	loanID core.LoanIDString,
	bookID core.BookIDString,
	borrowerID core.BorrowerIDString,
	occurredAt time.Time,
) Command {

	return Command{
		LoanID:     loanID,
		BookID:     bookID,
		BorrowerID: borrowerID,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}
}
