package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/pkg/timeutil"
)

func returnSetup(loan *library.Loan, copies int) (*fakeStudentRepo, *fakeBookRepo, *fakeLoanRepo) {
	s := testStudent("student-1")
	s.TotalBooksIssued = 1
	s.LibraryCleared = false

	book := testBook("book-1", copies)
	book.AvailableCopies = copies - 1

	return newFakeStudentRepo(s), newFakeBookRepo(book), newFakeLoanRepo(loan)
}

func TestReturnBook_OnTimeNoCharge(t *testing.T) {
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	loan := &library.Loan{ID: "loan-1", BookID: "book-1", StudentID: "student-1", Status: library.LoanActive, DueDate: due}
	students, books, loans := returnSetup(loan, 2)
	bus := &capturingBus{}
	clock := timeutil.NewManualClock(due.AddDate(0, 0, -1))

	h := NewReturnBookHandler(students, books, loans, clock, bus)
	result, err := h.Handle(context.Background(), ReturnBookCommand{StudentID: "student-1", BookID: "book-1"})

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.TotalDue)
	assert.False(t, result.PaymentRequired)
	assert.Equal(t, library.LoanReturned, result.Loan.Status)

	book, _ := books.GetByID(context.Background(), "book-1")
	assert.Equal(t, 2, book.AvailableCopies)

	// Nothing outstanding, nothing owed: the student is cleared again.
	s, _ := students.GetByID(context.Background(), "student-1")
	assert.True(t, s.LibraryCleared)
	assert.Equal(t, 1, s.TotalBooksReturned)

	assert.Equal(t, []shared.EventType{shared.EventBookReturned}, bus.types())
}

func TestReturnBook_OverdueFineStaysUnpaid(t *testing.T) {
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	loan := &library.Loan{ID: "loan-1", BookID: "book-1", StudentID: "student-1", Status: library.LoanOverdue, DueDate: due}
	students, books, loans := returnSetup(loan, 2)
	clock := timeutil.NewManualClock(due.AddDate(0, 0, 3))

	h := NewReturnBookHandler(students, books, loans, clock, nil)
	result, err := h.Handle(context.Background(), ReturnBookCommand{StudentID: "student-1", BookID: "book-1"})

	require.NoError(t, err)
	assert.Equal(t, 3, result.DaysOverdue)
	assert.Equal(t, 30.0, result.FineAmount)
	assert.True(t, result.PaymentRequired)

	// The return never settles the charge; only an explicit payment does.
	stored, _ := loans.GetByID(context.Background(), "loan-1")
	assert.False(t, stored.FinePaid)
	assert.Equal(t, 30.0, stored.FineAmount)

	// Unpaid fine keeps the student not cleared.
	s, _ := students.GetByID(context.Background(), "student-1")
	assert.False(t, s.LibraryCleared)
}

func TestReturnBook_LostCopyNeverReturnsToShelf(t *testing.T) {
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	loan := &library.Loan{ID: "loan-1", BookID: "book-1", StudentID: "student-1", Status: library.LoanActive, DueDate: due}
	students, books, loans := returnSetup(loan, 2)
	clock := timeutil.NewManualClock(due)

	h := NewReturnBookHandler(students, books, loans, clock, nil)
	result, err := h.Handle(context.Background(), ReturnBookCommand{
		StudentID: "student-1", BookID: "book-1", Condition: library.ConditionLost,
	})

	require.NoError(t, err)
	assert.Equal(t, 900.0, result.ReplacementCost) // 600 * 1.5 markup
	assert.Equal(t, 900.0, result.TotalDue)

	book, _ := books.GetByID(context.Background(), "book-1")
	assert.Equal(t, 1, book.AvailableCopies)
}

func TestReturnBook_NoOutstandingLoan(t *testing.T) {
	students, books, loans := returnSetup(&library.Loan{
		ID: "loan-1", BookID: "book-1", StudentID: "student-1", Status: library.LoanReturned,
	}, 2)
	clock := timeutil.NewManualClock(time.Now())

	h := NewReturnBookHandler(students, books, loans, clock, nil)
	_, err := h.Handle(context.Background(), ReturnBookCommand{StudentID: "student-1", BookID: "book-1"})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReturnBook_InvalidCondition(t *testing.T) {
	students, books, loans := returnSetup(&library.Loan{
		ID: "loan-1", BookID: "book-1", StudentID: "student-1", Status: library.LoanActive,
	}, 2)
	clock := timeutil.NewManualClock(time.Now())

	h := NewReturnBookHandler(students, books, loans, clock, nil)
	_, err := h.Handle(context.Background(), ReturnBookCommand{
		StudentID: "student-1", BookID: "book-1", Condition: "soggy",
	})

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
