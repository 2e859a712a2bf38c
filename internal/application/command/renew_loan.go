package command

import (
	"context"
	"errors"
	"time"

	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RENEW LOAN COMMAND
// Extends an active loan by the book's loan period. Overdue loans cannot be
// renewed; they must be returned and settled.
// ══════════════════════════════════════════════════════════════════════════════

// RenewLoanCommand contains the data to renew a loan.
type RenewLoanCommand struct {
	StudentID string
	BookID    string

	// AsOf is the renewal time (defaults to the handler clock when zero).
	AsOf time.Time
}

// Validate validates the command.
func (c RenewLoanCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("renew_loan: student_id is required")
	}
	if c.BookID == "" {
		return errors.New("renew_loan: book_id is required")
	}
	return nil
}

// RenewLoanResult contains the extended loan.
type RenewLoanResult struct {
	Loan       *library.Loan
	NewDueDate time.Time
}

// RenewLoanHandler handles the RenewLoanCommand.
type RenewLoanHandler struct {
	books  library.BookRepository
	loans  library.LoanRepository
	clock  timeutil.Clock
	events shared.EventPublisher
}

// NewRenewLoanHandler creates a new RenewLoanHandler.
func NewRenewLoanHandler(
	books library.BookRepository,
	loans library.LoanRepository,
	clock timeutil.Clock,
	events shared.EventPublisher,
) *RenewLoanHandler {
	return &RenewLoanHandler{books: books, loans: loans, clock: clock, events: events}
}

// Handle executes the renewal.
func (h *RenewLoanHandler) Handle(ctx context.Context, cmd RenewLoanCommand) (*RenewLoanResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("library", "Renew", shared.ErrInvalidInput, "invalid command", err)
	}

	asOf := cmd.AsOf
	if asOf.IsZero() {
		asOf = h.clock.Now()
	}

	loan, err := h.loans.FindOutstanding(ctx, cmd.BookID, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("library", "Renew", shared.ErrNotFound,
			"no outstanding loan for this book and student", err)
	}

	book, err := h.books.GetByID(ctx, cmd.BookID)
	if err != nil {
		return nil, shared.WrapError("library", "Renew", shared.ErrNotFound, "book not found", err)
	}

	if err := loan.Renew(book, asOf); err != nil {
		return nil, shared.WrapError("library", "Renew", shared.ErrPreconditionFailed, "renewal refused", err)
	}

	if err := h.loans.Update(ctx, loan); err != nil {
		return nil, shared.WrapError("library", "Renew", shared.ErrExternalService, "loan persistence failed", err)
	}

	if h.events != nil {
		_ = h.events.Publish(shared.BookBorrowedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventBookRenewed, loan.ID),
			LoanID:    loan.ID,
			BookID:    book.ID,
			BookTitle: book.Title,
			StudentID: loan.StudentID,
			DueDate:   loan.DueDate,
			DailyFine: book.DailyFine,
		})
	}

	return &RenewLoanResult{Loan: loan, NewDueDate: loan.DueDate}, nil
}
