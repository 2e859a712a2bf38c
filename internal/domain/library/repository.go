package library

import (
	"context"
	"time"
)

// BookRepository defines persistence operations for the catalog.
type BookRepository interface {
	// Create adds a catalog entry. Returns ErrBookAlreadyExists on a
	// duplicate ISBN.
	Create(ctx context.Context, b *Book) error

	// GetByID returns a book by internal ID.
	GetByID(ctx context.Context, id string) (*Book, error)

	// Update persists changes to a catalog entry.
	Update(ctx context.Context, b *Book) error

	// TakeCopy atomically decrements available copies if and only if at
	// least one copy is on the shelf, flipping status to borrowed when the
	// last copy goes out. Returns ErrBookUnavailable when no copy is left.
	// This is the guard against two borrowers racing for the last copy.
	TakeCopy(ctx context.Context, bookID string) error

	// ReturnCopy atomically increments available copies, capped at total
	// copies, flipping status back to available.
	ReturnCopy(ctx context.Context, bookID string) error
}

// LoanRepository defines persistence operations for borrow transactions.
type LoanRepository interface {
	// Create records a new loan. Returns ErrLoanAlreadyOutstanding when the
	// student already holds an active or overdue loan for the same book.
	Create(ctx context.Context, l *Loan) error

	// GetByID returns a loan by internal ID.
	GetByID(ctx context.Context, id string) (*Loan, error)

	// FindOutstanding returns the active or overdue loan for the given
	// (book, student) pair, or ErrLoanNotFound.
	FindOutstanding(ctx context.Context, bookID, studentID string) (*Loan, error)

	// ListOutstandingByStudent returns every active or overdue loan held by
	// the student.
	ListOutstandingByStudent(ctx context.Context, studentID string) ([]*Loan, error)

	// ListUnpaidFinesByStudent returns every loan of the student with an
	// assessed, unsettled fine.
	ListUnpaidFinesByStudent(ctx context.Context, studentID string) ([]*Loan, error)

	// CountOverdueByStudent returns how many overdue loans the student holds.
	CountOverdueByStudent(ctx context.Context, studentID string) (int, error)

	// ListOverdue returns every loan currently in overdue status.
	ListOverdue(ctx context.Context) ([]*Loan, error)

	// Update persists changes to a loan.
	Update(ctx context.Context, l *Loan) error

	// Delete removes a loan record. Used to compensate a partially applied
	// borrow; regular returns keep their loan history.
	Delete(ctx context.Context, id string) error

	// MarkOverdueBefore transitions every active loan with a due date before
	// the cutoff to overdue and returns the affected loans. Idempotent.
	MarkOverdueBefore(ctx context.Context, cutoff time.Time) ([]*Loan, error)

	// SettleFines marks all of the student's unpaid fines as paid in a
	// single atomic batch and returns the settled loans. Either every
	// matched loan is marked paid or none are.
	SettleFines(ctx context.Context, studentID string, at time.Time, paymentMode string) ([]*Loan, error)
}
