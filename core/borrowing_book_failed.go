package core

import (
	"time"
)

const BorrowingBookFailedEventType = "BorrowingBookFailed"

// BorrowingBookFailed records a rejected borrow. Reason is an ErrorKind label.
type BorrowingBookFailed struct {
	BookID      BookIDString
	BorrowerID  BorrowerIDString
	Reason      string
	FailureInfo string
	OccurredAt  OccurredAtTS
}

func BuildBorrowingBookFailed(
	bookID BookIDString,
	borrowerID BorrowerIDString,
	err error,
	occurredAt time.Time,
) BorrowingBookFailed {

	return BorrowingBookFailed{
		BookID:      bookID,
		BorrowerID:  borrowerID,
		Reason:      ErrorKind(err),
		FailureInfo: err.Error(),
		OccurredAt:  ToOccurredAt(occurredAt),
	}
}

func (e BorrowingBookFailed) EventType() string {
	return BorrowingBookFailedEventType
}

func (e BorrowingBookFailed) HasOccurredAt() time.Time {
	return e.OccurredAt
}

func (e BorrowingBookFailed) IsErrorEvent() bool {
	return true
}

func (e BorrowingBookFailed) ForBook() BookIDString {
	return e.BookID
}
