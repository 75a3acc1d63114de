package catalog

import (
	"time"

	"github.com/bookverse/borrowledger/core"
)

const (
	addCommandType    = "AddBook"
	updateCommandType = "UpdateBook"
	removeCommandType = "RemoveBook"
)

// AddCommand creates a catalog entry owned by OwnerID. All copies start available.
type AddCommand struct {
	Book       core.Book
	OwnerID    core.BorrowerIDString
	OccurredAt core.OccurredAtTS
}

func BuildAddCommand(book core.Book, ownerID core.BorrowerIDString, occurredAt time.Time) AddCommand {
	book.ID = ""
	book.Owner = ownerID
	book.AvailableQuantity = book.TotalQuantity

	return AddCommand{Book: book, OwnerID: ownerID, OccurredAt: core.ToOccurredAt(occurredAt)}
}

func (c AddCommand) CommandType() string {
	return addCommandType
}

// UpdateCommand changes the details of an entry. The server recomputes availability.
type UpdateCommand struct {
	Book       core.Book
	OwnerID    core.BorrowerIDString
	OccurredAt core.OccurredAtTS
}

func BuildUpdateCommand(book core.Book, ownerID core.BorrowerIDString, occurredAt time.Time) UpdateCommand {
	book.Owner = ownerID

	return UpdateCommand{Book: book, OwnerID: ownerID, OccurredAt: core.ToOccurredAt(occurredAt)}
}

func (c UpdateCommand) CommandType() string {
	return updateCommandType
}

type RemoveCommand struct {
	BookID     core.BookIDString
	OwnerID    core.BorrowerIDString
	OccurredAt core.OccurredAtTS
}

func BuildRemoveCommand(bookID core.BookIDString, ownerID core.BorrowerIDString, occurredAt time.Time) RemoveCommand {
	return RemoveCommand{BookID: bookID, OwnerID: ownerID, OccurredAt: core.ToOccurredAt(occurredAt)}
}

func (c RemoveCommand) CommandType() string {
	return removeCommandType
}
