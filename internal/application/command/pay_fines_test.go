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

func payFinesSetup() (*fakeStudentRepo, *fakeLoanRepo) {
	s := testStudent("student-1")
	s.LibraryCleared = false
	loans := newFakeLoanRepo(
		&library.Loan{ID: "loan-1", BookID: "book-1", StudentID: "student-1", Status: library.LoanReturned, FineAmount: 30.0},
		&library.Loan{ID: "loan-2", BookID: "book-2", StudentID: "student-1", Status: library.LoanReturned, FineAmount: 70.0},
	)
	return newFakeStudentRepo(s), loans
}

func TestPayFines_ExactAmountSettlesEverything(t *testing.T) {
	students, loans := payFinesSetup()
	bus := &capturingBus{}
	asOf := time.Date(2026, 3, 20, 11, 0, 0, 0, time.UTC)

	h := NewPayFinesHandler(students, loans, timeutil.NewManualClock(asOf), bus)
	result, err := h.Handle(context.Background(), PayFinesCommand{
		StudentID: "student-1", Amount: 100.0, PaymentMode: PaymentUPI,
	})

	require.NoError(t, err)
	assert.Equal(t, 100.0, result.PaidAmount)
	assert.Equal(t, 2, result.LoanCount)
	assert.NotEmpty(t, result.ReceiptNumber)

	for _, id := range []string{"loan-1", "loan-2"} {
		l, _ := loans.GetByID(context.Background(), id)
		assert.True(t, l.FinePaid)
		assert.Equal(t, PaymentUPI, l.PaymentMode)
	}

	// With nothing outstanding left the student is cleared.
	s, _ := students.GetByID(context.Background(), "student-1")
	assert.True(t, s.LibraryCleared)

	assert.Equal(t, []shared.EventType{shared.EventFinesPaid}, bus.types())
}

func TestPayFines_WithinEpsilon(t *testing.T) {
	students, loans := payFinesSetup()

	h := NewPayFinesHandler(students, loans, timeutil.NewManualClock(time.Now()), nil)
	result, err := h.Handle(context.Background(), PayFinesCommand{StudentID: "student-1", Amount: 100.005})

	require.NoError(t, err)
	assert.Equal(t, 2, result.LoanCount)
}

func TestPayFines_MismatchIsAllOrNothing(t *testing.T) {
	students, loans := payFinesSetup()

	h := NewPayFinesHandler(students, loans, timeutil.NewManualClock(time.Now()), nil)
	_, err := h.Handle(context.Background(), PayFinesCommand{StudentID: "student-1", Amount: 30.0})

	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)
	assert.ErrorIs(t, err, library.ErrPaymentAmountMismatch)

	// A partial payment settles nothing.
	unpaid, _ := loans.ListUnpaidFinesByStudent(context.Background(), "student-1")
	assert.Len(t, unpaid, 2)
}

func TestPayFines_NothingToSettle(t *testing.T) {
	students := newFakeStudentRepo(testStudent("student-1"))

	h := NewPayFinesHandler(students, newFakeLoanRepo(), timeutil.NewManualClock(time.Now()), nil)
	_, err := h.Handle(context.Background(), PayFinesCommand{StudentID: "student-1", Amount: 0})

	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, err, library.ErrNoUnpaidFines)
}

func TestPayFines_Validation(t *testing.T) {
	students, loans := payFinesSetup()
	h := NewPayFinesHandler(students, loans, timeutil.NewManualClock(time.Now()), nil)

	_, err := h.Handle(context.Background(), PayFinesCommand{Amount: 100})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = h.Handle(context.Background(), PayFinesCommand{StudentID: "student-1", Amount: -1})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = h.Handle(context.Background(), PayFinesCommand{StudentID: "student-1", Amount: 100, PaymentMode: "barter"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
