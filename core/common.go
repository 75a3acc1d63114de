package core

import (
	"errors"
	"time"
)

// BookIDString identifies a Book.
type BookIDString = string

// BorrowerIDString identifies an authenticated user (the token subject).
type BorrowerIDString = string

// LoanIDString identifies a Loan.
type LoanIDString = string

// OccurredAtTS is when a domain event occurred.
type OccurredAtTS = time.Time

// DateLayout is the wire and CLI format of a return date.
const DateLayout = time.DateOnly

// ToOccurredAt normalizes to UTC with microsecond precision, which every journal engine can store.
func ToOccurredAt(t time.Time) OccurredAtTS {
	return t.UTC().Truncate(time.Microsecond)
}

// CalendarDay returns midnight UTC of t's date as seen in t's own location.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from now's date to returnDate's date.
// It is negative once returnDate is in the past.
func DaysBetween(returnDate, now time.Time) int {
	return int(CalendarDay(returnDate).Sub(CalendarDay(now)) / (24 * time.Hour))
}

// ParseReturnDate parses a YYYY-MM-DD date.
func ParseReturnDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidDate, err)
	}

	return t, nil
}
