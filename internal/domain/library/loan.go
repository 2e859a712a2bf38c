package library

import (
	"errors"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// LoanStatus is the lifecycle state of a borrow transaction.
// Lifecycle: active → overdue (time-derived) → returned, or
// active → cancelled for reservations that never materialize.
type LoanStatus string

const (
	// LoanActive - book is out and not yet past its due date.
	LoanActive LoanStatus = "active"
	// LoanOverdue - book is out past its due date.
	LoanOverdue LoanStatus = "overdue"
	// LoanReturned - book came back (possibly lost/damaged, with charges).
	LoanReturned LoanStatus = "returned"
	// LoanReserved - copy held for pickup.
	LoanReserved LoanStatus = "reserved"
	// LoanCancelled - reservation or loan voided.
	LoanCancelled LoanStatus = "cancelled"
)

// IsValid checks that the status is one of the known values.
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanActive, LoanOverdue, LoanReturned, LoanReserved, LoanCancelled:
		return true
	default:
		return false
	}
}

// IsOutstanding reports whether the loan still holds a physical copy.
// At most one outstanding loan may exist per (student, book) pair.
func (s LoanStatus) IsOutstanding() bool {
	return s == LoanActive || s == LoanOverdue
}

// Condition describes the state of a copy at return time.
type Condition string

const (
	// ConditionGood - normal return, copy goes back on the shelf.
	ConditionGood Condition = "good"
	// ConditionDamaged - replacement cost charged, copy still returned.
	ConditionDamaged Condition = "damaged"
	// ConditionLost - replacement cost charged, copy never returns to
	// availability.
	ConditionLost Condition = "lost"
)

// IsValid checks that the condition is one of the known values.
func (c Condition) IsValid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionLost:
		return true
	default:
		return false
	}
}

// ChargesReplacement reports whether this condition incurs the book's full
// replacement cost on top of any accrued fine.
func (c Condition) ChargesReplacement() bool {
	return c == ConditionDamaged || c == ConditionLost
}

// ReturnsToShelf reports whether the copy re-enters availability.
func (c Condition) ReturnsToShelf() bool {
	return c != ConditionLost
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: LOAN
// ══════════════════════════════════════════════════════════════════════════════

// Loan is one borrow transaction for one physical copy.
//
// FineAmount is computed at return time and is settled separately: FinePaid is
// flipped only by an explicit batch payment, never by the return itself.
type Loan struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// BookID and StudentID reference the borrowed title and the borrower.
	BookID    string
	StudentID string

	// BorrowDate is when the copy went out.
	BorrowDate time.Time

	// DueDate = BorrowDate + book.MaxBorrowDays.
	DueDate time.Time

	// ReturnDate is when the copy came back (zero while outstanding).
	ReturnDate time.Time

	// Status is the lifecycle state.
	Status LoanStatus

	// Condition recorded at return time (empty while outstanding).
	Condition Condition

	// RenewCount tracks how many times the loan was renewed.
	RenewCount int

	// FineAmount is the total charge assessed at return time: accrued
	// overdue fine plus replacement cost for lost/damaged copies.
	FineAmount float64

	// FinePaid is set only by an explicit payment action.
	FinePaid bool

	// FinePaymentDate is when the fine was settled.
	FinePaymentDate time.Time

	// PaymentMode records how the fine was paid (cash, card, upi, online).
	PaymentMode string

	// Notes holds free-form librarian remarks.
	Notes string

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrLoanNotFound - no matching outstanding loan.
	ErrLoanNotFound = errors.New("active borrowing transaction not found")

	// ErrLoanNotOutstanding - operation requires an active/overdue loan.
	ErrLoanNotOutstanding = errors.New("loan is not outstanding")

	// ErrLoanAlreadyOutstanding - the student already holds this book.
	ErrLoanAlreadyOutstanding = errors.New("student already has an outstanding loan for this book")

	// ErrRenewOverdue - overdue loans cannot be renewed.
	ErrRenewOverdue = errors.New("overdue loan cannot be renewed")

	// ErrInvalidCondition - unknown return condition.
	ErrInvalidCondition = errors.New("invalid return condition")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY
// ══════════════════════════════════════════════════════════════════════════════

// NewLoan creates an active loan for a copy of the given book borrowed at
// asOf. The due date is derived here, once, from the book's loan period.
func NewLoan(id string, book *Book, studentID string, asOf time.Time) (*Loan, error) {
	if id == "" {
		return nil, errors.New("loan id is required")
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	if studentID == "" {
		return nil, errors.New("student id is required")
	}

	now := time.Now().UTC()

	return &Loan{
		ID:         id,
		BookID:     book.ID,
		StudentID:  studentID,
		BorrowDate: asOf,
		DueDate:    asOf.AddDate(0, 0, book.MaxBorrowDays),
		Status:     LoanActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// IsOutstanding reports whether the loan still holds a copy.
func (l *Loan) IsOutstanding() bool {
	return l.Status.IsOutstanding()
}

// IsPastDue reports whether the loan is past its due date at asOf.
func (l *Loan) IsPastDue(asOf time.Time) bool {
	return l.IsOutstanding() && asOf.After(l.DueDate)
}

// HasUnpaidFine reports whether a charge was assessed and not yet settled.
func (l *Loan) HasUnpaidFine() bool {
	return l.FineAmount > 0 && !l.FinePaid
}

// MarkOverdue transitions an active loan past its due date to overdue.
// Idempotent: already-overdue loans are left untouched.
func (l *Loan) MarkOverdue(asOf time.Time) bool {
	if l.Status != LoanActive || !asOf.After(l.DueDate) {
		return false
	}
	l.Status = LoanOverdue
	l.UpdatedAt = time.Now().UTC()
	return true
}

// CompleteReturn closes the loan with the assessed charge. The caller computes
// the charge with AssessFine and adjusts book availability per the condition.
func (l *Loan) CompleteReturn(asOf time.Time, condition Condition, totalDue float64) error {
	if !l.IsOutstanding() {
		return ErrLoanNotOutstanding
	}
	if !condition.IsValid() {
		return ErrInvalidCondition
	}

	l.Status = LoanReturned
	l.ReturnDate = asOf
	l.Condition = condition
	l.FineAmount = totalDue
	if l.Notes == "" {
		l.Notes = fmt.Sprintf("Book condition: %s", condition)
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// Renew extends the due date by the book's loan period counted from asOf.
// Only active loans can be renewed; overdue loans must be returned and
// settled first.
func (l *Loan) Renew(book *Book, asOf time.Time) error {
	if !l.IsOutstanding() {
		return ErrLoanNotOutstanding
	}
	if l.Status == LoanOverdue || asOf.After(l.DueDate) {
		return ErrRenewOverdue
	}

	l.DueDate = asOf.AddDate(0, 0, book.MaxBorrowDays)
	l.RenewCount++
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// SettleFine marks the assessed charge as paid.
func (l *Loan) SettleFine(at time.Time, paymentMode string) {
	l.FinePaid = true
	l.FinePaymentDate = at
	l.PaymentMode = paymentMode
	l.UpdatedAt = time.Now().UTC()
}

// String returns a short representation for logging.
func (l *Loan) String() string {
	return fmt.Sprintf("Loan{ID: %s, Book: %s, Student: %s, Status: %s}",
		l.ID, l.BookID, l.StudentID, l.Status)
}
