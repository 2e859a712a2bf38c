package library

import (
	"time"

	"github.com/campus-hub/college-hub/pkg/timeutil"
)

// FineAssessment is the charge computed for a loan at a point in time.
type FineAssessment struct {
	// DaysOverdue is the number of whole days past the due date, rounded up.
	DaysOverdue int

	// FineAmount = DaysOverdue * book.DailyFine.
	FineAmount float64

	// ReplacementCost is the book's replacement cost when the copy comes
	// back lost or damaged, zero otherwise.
	ReplacementCost float64

	// TotalDue = FineAmount + ReplacementCost.
	TotalDue float64

	// ReturnToShelf reports whether the copy re-enters availability.
	ReturnToShelf bool
}

// AssessFine computes the charge for returning the loan's copy at asOf in the
// given condition. Pure function of its inputs: no side effects, no clock.
//
// daysOverdue = max(0, ceil((asOf - dueDate) / 24h)); a copy one second late
// already owes one day. Lost and damaged copies owe the book's replacement
// cost in addition to any accrued fine; a lost copy never returns to the
// shelf. The replacement cost always comes from the catalog entry.
func AssessFine(book *Book, loan *Loan, asOf time.Time, condition Condition) FineAssessment {
	days := timeutil.DaysPast(loan.DueDate, asOf)

	assessment := FineAssessment{
		DaysOverdue:   days,
		FineAmount:    float64(days) * book.DailyFine,
		ReturnToShelf: condition.ReturnsToShelf(),
	}

	if condition.ChargesReplacement() {
		assessment.ReplacementCost = book.ReplacementCost
	}

	assessment.TotalDue = assessment.FineAmount + assessment.ReplacementCost
	return assessment
}

// AccruedFine returns just the overdue fine accrued on an outstanding loan as
// of the given time, with no replacement component. Used for projections of
// what a student would owe if they returned everything today.
func AccruedFine(book *Book, loan *Loan, asOf time.Time) float64 {
	return float64(timeutil.DaysPast(loan.DueDate, asOf)) * book.DailyFine
}
