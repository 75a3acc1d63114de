package syncloans

import (
	"time"

	"github.com/bookverse/borrowledger/core"
)

const (
	commandType = "SyncLoans"
)

type Command struct {
	BorrowerID core.BorrowerIDString
	OccurredAt core.OccurredAtTS
}

func (c Command) CommandType() string {
	return commandType
}

func BuildCommand(borrowerID core.BorrowerIDString, occurredAt time.Time) Command {
	return Command{
		BorrowerID: borrowerID,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}
}
