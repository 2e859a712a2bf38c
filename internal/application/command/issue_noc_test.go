package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/internal/domain/student"
	"github.com/campus-hub/college-hub/pkg/timeutil"
)

func TestIssueNOC_EligibleStudentApproved(t *testing.T) {
	students := newFakeStudentRepo(testStudent("student-1"))
	bus := &capturingBus{}
	asOf := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	h := NewIssueNOCHandler(students, newFakeLoanRepo(), timeutil.NewManualClock(asOf), bus)
	result, err := h.Handle(context.Background(), IssueNOCCommand{StudentID: "student-1", IssuerID: "librarian-1"})

	require.NoError(t, err)
	assert.Equal(t, asOf, result.IssuedAt)

	s, _ := students.GetByID(context.Background(), "student-1")
	assert.Equal(t, student.NOCApproved, s.NOCStatus)
	assert.Equal(t, "librarian-1", s.NOCIssuedBy)
	assert.True(t, s.LibraryCleared)

	assert.Equal(t, []shared.EventType{shared.EventNOCIssued}, bus.types())
}

func TestIssueNOC_OutstandingLoanBlocks(t *testing.T) {
	students := newFakeStudentRepo(testStudent("student-1"))
	loans := newFakeLoanRepo(&library.Loan{
		ID: "loan-1", BookID: "book-1", StudentID: "student-1", Status: library.LoanActive,
	})

	h := NewIssueNOCHandler(students, loans, timeutil.NewManualClock(time.Now()), nil)
	_, err := h.Handle(context.Background(), IssueNOCCommand{StudentID: "student-1", IssuerID: "librarian-1"})

	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)
	assert.ErrorIs(t, err, ErrNotEligible)

	// Eligibility is re-checked at issue time; the status never moved.
	s, _ := students.GetByID(context.Background(), "student-1")
	assert.Equal(t, student.NOCPending, s.NOCStatus)
}

func TestIssueNOC_UnpaidFineBlocks(t *testing.T) {
	students := newFakeStudentRepo(testStudent("student-1"))
	loans := newFakeLoanRepo(&library.Loan{
		ID: "loan-1", BookID: "book-1", StudentID: "student-1",
		Status: library.LoanReturned, FineAmount: 25.0,
	})

	h := NewIssueNOCHandler(students, loans, timeutil.NewManualClock(time.Now()), nil)
	_, err := h.Handle(context.Background(), IssueNOCCommand{StudentID: "student-1", IssuerID: "librarian-1"})

	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestIssueNOC_AlreadyApproved(t *testing.T) {
	s := testStudent("student-1")
	s.NOCStatus = student.NOCApproved
	students := newFakeStudentRepo(s)

	h := NewIssueNOCHandler(students, newFakeLoanRepo(), timeutil.NewManualClock(time.Now()), nil)
	_, err := h.Handle(context.Background(), IssueNOCCommand{StudentID: "student-1", IssuerID: "librarian-1"})

	assert.ErrorIs(t, err, shared.ErrStateTransition)
	assert.ErrorIs(t, err, student.ErrNOCNotPending)
}

func TestRejectThenReopenNOC(t *testing.T) {
	students := newFakeStudentRepo(testStudent("student-1"))
	bus := &capturingBus{}

	reject := NewRejectNOCHandler(students, bus)
	reopen := NewReopenNOCHandler(students, bus)

	require.NoError(t, reject.Handle(context.Background(), RejectNOCCommand{StudentID: "student-1", Reason: "books pending"}))

	s, _ := students.GetByID(context.Background(), "student-1")
	assert.Equal(t, student.NOCRejected, s.NOCStatus)

	// Rejecting twice is refused.
	err := reject.Handle(context.Background(), RejectNOCCommand{StudentID: "student-1"})
	assert.ErrorIs(t, err, shared.ErrStateTransition)

	// Reopen moves it back to pending.
	require.NoError(t, reopen.Handle(context.Background(), ReopenNOCCommand{StudentID: "student-1"}))
	s, _ = students.GetByID(context.Background(), "student-1")
	assert.Equal(t, student.NOCPending, s.NOCStatus)

	// Reopen only applies to rejected NOCs.
	err = reopen.Handle(context.Background(), ReopenNOCCommand{StudentID: "student-1"})
	assert.ErrorIs(t, err, student.ErrNOCNotRejected)

	assert.Equal(t, []shared.EventType{shared.EventNOCRejected, shared.EventNOCReopened}, bus.types())
}

func TestMarkOverdue_SweepIsIdempotent(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	loans := newFakeLoanRepo(
		&library.Loan{ID: "loan-1", BookID: "book-1", StudentID: "student-1", Status: library.LoanActive, DueDate: due},
		&library.Loan{ID: "loan-2", BookID: "book-2", StudentID: "student-2", Status: library.LoanActive, DueDate: due.AddDate(0, 0, 10)},
	)
	bus := &capturingBus{}
	clock := timeutil.NewManualClock(due.AddDate(0, 0, 1))

	h := NewMarkOverdueHandler(loans, clock, bus, nil)

	result, err := h.Handle(context.Background(), MarkOverdueCommand{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Marked)

	l, _ := loans.GetByID(context.Background(), "loan-1")
	assert.Equal(t, library.LoanOverdue, l.Status)
	l, _ = loans.GetByID(context.Background(), "loan-2")
	assert.Equal(t, library.LoanActive, l.Status)

	// A second sweep at the same cutoff marks nothing new.
	result, err = h.Handle(context.Background(), MarkOverdueCommand{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Marked)

	assert.Equal(t, []shared.EventType{shared.EventLoanOverdue}, bus.types())
}

func TestRenewLoan(t *testing.T) {
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	asOf := due.AddDate(0, 0, -2)
	books := newFakeBookRepo(testBook("book-1", 1))
	loans := newFakeLoanRepo(&library.Loan{
		ID: "loan-1", BookID: "book-1", StudentID: "student-1", Status: library.LoanActive, DueDate: due,
	})
	bus := &capturingBus{}

	h := NewRenewLoanHandler(books, loans, timeutil.NewManualClock(asOf), bus)
	result, err := h.Handle(context.Background(), RenewLoanCommand{StudentID: "student-1", BookID: "book-1"})

	require.NoError(t, err)
	assert.Equal(t, asOf.AddDate(0, 0, library.DefaultMaxBorrowDays), result.NewDueDate)

	stored, _ := loans.GetByID(context.Background(), "loan-1")
	assert.Equal(t, 1, stored.RenewCount)

	assert.Equal(t, []shared.EventType{shared.EventBookRenewed}, bus.types())
}

func TestRenewLoan_OverdueRefused(t *testing.T) {
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	books := newFakeBookRepo(testBook("book-1", 1))
	loans := newFakeLoanRepo(&library.Loan{
		ID: "loan-1", BookID: "book-1", StudentID: "student-1", Status: library.LoanOverdue, DueDate: due,
	})

	h := NewRenewLoanHandler(books, loans, timeutil.NewManualClock(due.AddDate(0, 0, 1)), nil)
	_, err := h.Handle(context.Background(), RenewLoanCommand{StudentID: "student-1", BookID: "book-1"})

	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)
	assert.ErrorIs(t, err, library.ErrRenewOverdue)
}
