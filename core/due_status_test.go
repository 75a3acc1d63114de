package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bookverse/borrowledger/core"
)

func givenLoanDueIn(days int) core.Loan {
	return core.Loan{
		ID:         "loan-1",
		BookID:     "book-1",
		Borrower:   "reader-1",
		ReturnDate: core.CalendarDay(today.AddDate(0, 0, days)),
		Status:     core.LoanActive,
	}
}

func Test_ClassifyDueStatus_Boundaries(t *testing.T) {
	tests := []struct {
		name        string
		days        int
		wantLevel   core.DueLevel
		wantOverdue int
	}{
		{name: "due in 4 days is normal", days: 4, wantLevel: core.DueNormal},
		{name: "due in 3 days is urgent", days: 3, wantLevel: core.DueUrgent},
		{name: "due today is urgent", days: 0, wantLevel: core.DueUrgent},
		{name: "one day late is overdue by 1", days: -1, wantLevel: core.DueOverdue, wantOverdue: 1},
		{name: "two days late is overdue by 2", days: -2, wantLevel: core.DueOverdue, wantOverdue: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := core.ClassifyDueStatus(givenLoanDueIn(tt.days), today)

			assert.Equal(t, tt.wantLevel, status.Level)
			assert.Equal(t, tt.wantOverdue, status.OverdueDays)
			assert.Equal(t, tt.days, status.DaysRemaining)
		})
	}
}

func Test_ClassifyDueStatus_Is_Idempotent(t *testing.T) {
	loan := givenLoanDueIn(2)

	first := core.ClassifyDueStatus(loan, today)
	second := core.ClassifyDueStatus(loan, today)

	assert.Equal(t, first, second)
}

func Test_ClassifyDueStatus_Counts_Calendar_Days(t *testing.T) {
	// arrange
	loan := givenLoanDueIn(1)
	lateEvening := time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, 10, 17, 0, 1, 0, 0, time.UTC)

	// act
	before := core.ClassifyDueStatus(loan, lateEvening)
	after := core.ClassifyDueStatus(loan, earlyMorning)

	// assert
	assert.Equal(t, 1, before.DaysRemaining)
	assert.Equal(t, 0, after.DaysRemaining)
}

func Test_ClassifyDueStatusWithin_Custom_Window(t *testing.T) {
	status := core.ClassifyDueStatusWithin(givenLoanDueIn(5), today, 7)

	assert.Equal(t, core.DueUrgent, status.Level)
}

func Test_DueStatus_String(t *testing.T) {
	assert.Equal(t, "overdue by 2 days", core.ClassifyDueStatus(givenLoanDueIn(-2), today).String())
	assert.Equal(t, "due today", core.ClassifyDueStatus(givenLoanDueIn(0), today).String())
	assert.Equal(t, "due in 1 day", core.ClassifyDueStatus(givenLoanDueIn(1), today).String())
}
