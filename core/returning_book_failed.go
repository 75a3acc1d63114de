package core

import (
	"time"
)

const ReturningBookFailedEventType = "ReturningBookFailed"

// ReturningBookFailed records a rejected return.
type ReturningBookFailed struct {
	BookID      BookIDString
	LoanID      LoanIDString
	BorrowerID  BorrowerIDString
	Reason      string
	FailureInfo string
	OccurredAt  OccurredAtTS
}

func BuildReturningBookFailed(
	bookID BookIDString,
	loanID LoanIDString,
	borrowerID BorrowerIDString,
	err error,
	occurredAt time.Time,
) ReturningBookFailed {

	return ReturningBookFailed{
		BookID:      bookID,
		LoanID:      loanID,
		BorrowerID:  borrowerID,
		Reason:      ErrorKind(err),
		FailureInfo: err.Error(),
		OccurredAt:  ToOccurredAt(occurredAt),
	}
}

func (e ReturningBookFailed) EventType() string {
	return ReturningBookFailedEventType
}

func (e ReturningBookFailed) HasOccurredAt() time.Time {
	return e.OccurredAt
}

func (e ReturningBookFailed) IsErrorEvent() bool {
	return true
}

func (e ReturningBookFailed) ForBook() BookIDString {
	return e.BookID
}
