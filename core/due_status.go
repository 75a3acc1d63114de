package core

import (
	"fmt"
	"time"
)

// UrgentWindowDays is how many days before the return date a loan counts as urgent.
const UrgentWindowDays = 3

// DueLevel drives the badge shown next to a loan.
type DueLevel string

const (
	DueNormal  DueLevel = "normal"
	DueUrgent  DueLevel = "urgent"
	DueOverdue DueLevel = "overdue"
)

// DueStatus is the classification of a loan's return date relative to today.
type DueStatus struct {
	Level         DueLevel
	DaysRemaining int
	OverdueDays   int
}

// ClassifyDueStatus classifies with the default urgent window.
func ClassifyDueStatus(loan Loan, now time.Time) DueStatus {
	return ClassifyDueStatusWithin(loan, now, UrgentWindowDays)
}

// ClassifyDueStatusWithin is overdue before the return date, urgent from urgentWindowDays
// days before it up to the day itself, and normal otherwise.
func ClassifyDueStatusWithin(loan Loan, now time.Time, urgentWindowDays int) DueStatus {
	daysRemaining := DaysBetween(loan.ReturnDate, now)

	switch {
	case daysRemaining < 0:
		return DueStatus{Level: DueOverdue, DaysRemaining: daysRemaining, OverdueDays: -daysRemaining}
	case daysRemaining <= urgentWindowDays:
		return DueStatus{Level: DueUrgent, DaysRemaining: daysRemaining}
	default:
		return DueStatus{Level: DueNormal, DaysRemaining: daysRemaining}
	}
}

func (s DueStatus) String() string {
	switch {
	case s.Level == DueOverdue:
		return fmt.Sprintf("overdue by %s", pluralDays(s.OverdueDays))
	case s.DaysRemaining == 0:
		return "due today"
	default:
		return fmt.Sprintf("due in %s", pluralDays(s.DaysRemaining))
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}

	return fmt.Sprintf("%d days", n)
}
