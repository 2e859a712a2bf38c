package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fineTestBook() *Book {
	return &Book{
		ID:              "book-1",
		Title:           "Operating System Concepts",
		Author:          "Silberschatz",
		DailyFine:       10.0,
		ReplacementCost: 750.0,
		MaxBorrowDays:   30,
	}
}

func fineTestLoan(due time.Time) *Loan {
	return &Loan{
		ID:        "loan-1",
		BookID:    "book-1",
		StudentID: "student-1",
		DueDate:   due,
		Status:    LoanActive,
	}
}

func TestAssessFine_OnTimeGoodReturn(t *testing.T) {
	due := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	assessment := AssessFine(fineTestBook(), fineTestLoan(due), due, ConditionGood)

	assert.Equal(t, 0, assessment.DaysOverdue)
	assert.Equal(t, 0.0, assessment.TotalDue)
	assert.True(t, assessment.ReturnToShelf)
}

func TestAssessFine_OneSecondLateIsOneDay(t *testing.T) {
	due := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	asOf := due.Add(time.Second)

	assessment := AssessFine(fineTestBook(), fineTestLoan(due), asOf, ConditionGood)

	assert.Equal(t, 1, assessment.DaysOverdue)
	assert.Equal(t, 10.0, assessment.FineAmount)
	assert.Equal(t, 10.0, assessment.TotalDue)
}

func TestAssessFine_PartialDaysRoundUp(t *testing.T) {
	due := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	asOf := due.Add(3*24*time.Hour + time.Hour)

	assessment := AssessFine(fineTestBook(), fineTestLoan(due), asOf, ConditionGood)

	assert.Equal(t, 4, assessment.DaysOverdue)
	assert.Equal(t, 40.0, assessment.FineAmount)
}

func TestAssessFine_DamagedChargesReplacement(t *testing.T) {
	due := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	asOf := due.Add(2 * 24 * time.Hour)

	assessment := AssessFine(fineTestBook(), fineTestLoan(due), asOf, ConditionDamaged)

	assert.Equal(t, 2, assessment.DaysOverdue)
	assert.Equal(t, 20.0, assessment.FineAmount)
	assert.Equal(t, 750.0, assessment.ReplacementCost)
	assert.Equal(t, 770.0, assessment.TotalDue)
	assert.True(t, assessment.ReturnToShelf)
}

func TestAssessFine_LostNeverReturnsToShelf(t *testing.T) {
	due := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	assessment := AssessFine(fineTestBook(), fineTestLoan(due), due, ConditionLost)

	assert.Equal(t, 750.0, assessment.ReplacementCost)
	assert.Equal(t, 750.0, assessment.TotalDue)
	assert.False(t, assessment.ReturnToShelf)
}

func TestAccruedFine(t *testing.T) {
	due := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	book := fineTestBook()
	loan := fineTestLoan(due)

	assert.Equal(t, 0.0, AccruedFine(book, loan, due))
	assert.Equal(t, 50.0, AccruedFine(book, loan, due.Add(5*24*time.Hour)))
}

func TestPaymentMatches(t *testing.T) {
	assert.True(t, PaymentMatches(100.0, 100.0))
	assert.True(t, PaymentMatches(100.0, 100.009))

	// Exactly one paisa off, in both directions. 100.01 - 100.0 is slightly
	// more than 0.01 in float64, so the tolerance must compare in paise.
	assert.True(t, PaymentMatches(100.01, 100.0))
	assert.True(t, PaymentMatches(100.0, 100.01))
	assert.True(t, PaymentMatches(0.01, 0.0))

	assert.False(t, PaymentMatches(100.0, 100.02))
	assert.False(t, PaymentMatches(99.0, 100.0))
}

func TestCheckDelinquency(t *testing.T) {
	assert.NoError(t, CheckDelinquency(0, 0))

	// Overdue books are reported before unpaid fines.
	assert.ErrorIs(t, CheckDelinquency(1, 50.0), ErrStudentHasOverdue)
	assert.ErrorIs(t, CheckDelinquency(0, 50.0), ErrStudentHasUnpaidFines)
}
