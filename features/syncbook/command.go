package syncbook

import (
	"time"

	"github.com/bookverse/borrowledger/core"
)

const (
	commandType = "SyncBook"
)

type Command struct {
	BookID     core.BookIDString
	OccurredAt core.OccurredAtTS
}

func (c Command) CommandType() string {
	return commandType
}

func BuildCommand(bookID core.BookIDString, occurredAt time.Time) Command {
	return Command{
		BookID:     bookID,
		OccurredAt: core.ToOccurredAt(occurredAt),
	}
}
