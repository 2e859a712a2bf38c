package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewLoan_DerivesDueDate(t *testing.T) {
	book := &Book{ID: "book-1", MaxBorrowDays: 14}
	asOf := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	loan, err := NewLoan("loan-1", book, "student-1", asOf)

	assert.NoError(t, err)
	assert.Equal(t, LoanActive, loan.Status)
	assert.Equal(t, asOf.AddDate(0, 0, 14), loan.DueDate)
}

func TestNewLoan_Validation(t *testing.T) {
	book := &Book{ID: "book-1", MaxBorrowDays: 14}
	asOf := time.Now()

	_, err := NewLoan("", book, "student-1", asOf)
	assert.Error(t, err)

	_, err = NewLoan("loan-1", nil, "student-1", asOf)
	assert.ErrorIs(t, err, ErrBookNotFound)

	_, err = NewLoan("loan-1", book, "", asOf)
	assert.Error(t, err)
}

func TestLoan_MarkOverdue(t *testing.T) {
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	loan := &Loan{ID: "loan-1", Status: LoanActive, DueDate: due}

	// Not yet past due.
	assert.False(t, loan.MarkOverdue(due))
	assert.Equal(t, LoanActive, loan.Status)

	// Past due flips to overdue exactly once.
	assert.True(t, loan.MarkOverdue(due.Add(time.Hour)))
	assert.Equal(t, LoanOverdue, loan.Status)
	assert.False(t, loan.MarkOverdue(due.Add(2*time.Hour)))
}

func TestLoan_CompleteReturn(t *testing.T) {
	asOf := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	loan := &Loan{ID: "loan-1", Status: LoanOverdue, DueDate: asOf.AddDate(0, 0, -5)}

	err := loan.CompleteReturn(asOf, ConditionDamaged, 800.0)

	assert.NoError(t, err)
	assert.Equal(t, LoanReturned, loan.Status)
	assert.Equal(t, ConditionDamaged, loan.Condition)
	assert.Equal(t, 800.0, loan.FineAmount)
	assert.False(t, loan.FinePaid)
	assert.Equal(t, asOf, loan.ReturnDate)
}

func TestLoan_CompleteReturn_Rejections(t *testing.T) {
	asOf := time.Now()

	returned := &Loan{ID: "loan-1", Status: LoanReturned}
	assert.ErrorIs(t, returned.CompleteReturn(asOf, ConditionGood, 0), ErrLoanNotOutstanding)

	active := &Loan{ID: "loan-2", Status: LoanActive}
	assert.ErrorIs(t, active.CompleteReturn(asOf, Condition("shredded"), 0), ErrInvalidCondition)
}

func TestLoan_Renew(t *testing.T) {
	book := &Book{ID: "book-1", MaxBorrowDays: 14}
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	asOf := due.AddDate(0, 0, -3)
	loan := &Loan{ID: "loan-1", Status: LoanActive, DueDate: due}

	err := loan.Renew(book, asOf)

	assert.NoError(t, err)
	assert.Equal(t, asOf.AddDate(0, 0, 14), loan.DueDate)
	assert.Equal(t, 1, loan.RenewCount)
}

func TestLoan_Renew_OverdueRejected(t *testing.T) {
	book := &Book{ID: "book-1", MaxBorrowDays: 14}
	due := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	overdue := &Loan{ID: "loan-1", Status: LoanOverdue, DueDate: due}
	assert.ErrorIs(t, overdue.Renew(book, due.AddDate(0, 0, 1)), ErrRenewOverdue)

	// Still marked active but past due by the wall clock: equally rejected.
	stale := &Loan{ID: "loan-2", Status: LoanActive, DueDate: due}
	assert.ErrorIs(t, stale.Renew(book, due.Add(time.Minute)), ErrRenewOverdue)
}

func TestLoan_SettleFine(t *testing.T) {
	loan := &Loan{ID: "loan-1", Status: LoanReturned, FineAmount: 120.0}
	assert.True(t, loan.HasUnpaidFine())

	at := time.Date(2026, 3, 21, 9, 0, 0, 0, time.UTC)
	loan.SettleFine(at, "upi")

	assert.False(t, loan.HasUnpaidFine())
	assert.True(t, loan.FinePaid)
	assert.Equal(t, "upi", loan.PaymentMode)
	assert.Equal(t, at, loan.FinePaymentDate)
}

func TestBook_TakeAndReturnCopy(t *testing.T) {
	book := &Book{ID: "book-1", TotalCopies: 2, AvailableCopies: 1, Status: BookAvailable}

	assert.NoError(t, book.TakeCopy())
	assert.Equal(t, 0, book.AvailableCopies)
	assert.Equal(t, BookBorrowed, book.Status)

	assert.ErrorIs(t, book.TakeCopy(), ErrBookUnavailable)

	book.ReturnCopy()
	assert.Equal(t, 1, book.AvailableCopies)
	assert.Equal(t, BookAvailable, book.Status)
}

func TestBook_ReturnCopyCappedAtTotal(t *testing.T) {
	book := &Book{ID: "book-1", TotalCopies: 2, AvailableCopies: 2, Status: BookAvailable}

	book.ReturnCopy()
	assert.Equal(t, 2, book.AvailableCopies)
}

func TestNewBook_DerivedPricing(t *testing.T) {
	book, err := NewBook(NewBookParams{
		ID:          "book-1",
		Title:       "  Digital Design  ",
		Author:      "Morris Mano",
		TotalCopies: 3,
		Price:       500.0,
	})

	assert.NoError(t, err)
	assert.Equal(t, "Digital Design", book.Title)
	assert.Equal(t, 750.0, book.ReplacementCost)
	assert.Equal(t, DefaultDailyFine, book.DailyFine)
	assert.Equal(t, DefaultMaxBorrowDays, book.MaxBorrowDays)
	assert.Equal(t, DeptGeneral, book.Department)
	assert.Equal(t, 3, book.AvailableCopies)
}

func TestNewBook_Validation(t *testing.T) {
	_, err := NewBook(NewBookParams{ID: "b", Title: " ", Author: "x", TotalCopies: 1})
	assert.ErrorIs(t, err, ErrInvalidTitle)

	_, err = NewBook(NewBookParams{ID: "b", Title: "t", Author: "a", TotalCopies: 0})
	assert.ErrorIs(t, err, ErrInvalidCopies)

	_, err = NewBook(NewBookParams{ID: "b", Title: "t", Author: "a", TotalCopies: 1, Price: -1})
	assert.ErrorIs(t, err, ErrInvalidPricing)

	_, err = NewBook(NewBookParams{ID: "b", Title: "t", Author: "a", TotalCopies: 1, Department: "LAW"})
	assert.Error(t, err)
}
