package command

import (
	"context"
	"errors"
	"time"

	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/internal/domain/student"
	"github.com/campus-hub/college-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RETURN BOOK COMMAND
// Closes a loan, assesses the fine, and restores availability unless the copy
// came back lost.
// ══════════════════════════════════════════════════════════════════════════════

// ReturnBookCommand contains the data to return a borrowed copy.
type ReturnBookCommand struct {
	// StudentID and BookID locate the outstanding loan.
	StudentID string
	BookID    string

	// Condition of the returned copy (defaults to good).
	Condition library.Condition

	// Notes holds optional librarian remarks.
	Notes string

	// AsOf is the return time (defaults to the handler clock when zero).
	AsOf time.Time
}

// Validate validates the command.
func (c ReturnBookCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("return_book: student_id is required")
	}
	if c.BookID == "" {
		return errors.New("return_book: book_id is required")
	}
	if c.Condition != "" && !c.Condition.IsValid() {
		return library.ErrInvalidCondition
	}
	return nil
}

// ReturnBookResult contains the assessed charges.
type ReturnBookResult struct {
	// Loan is the closed transaction.
	Loan *library.Loan

	// DaysOverdue, FineAmount, ReplacementCost and TotalDue break down the
	// charge. PaymentRequired is TotalDue > 0.
	DaysOverdue     int
	FineAmount      float64
	ReplacementCost float64
	TotalDue        float64
	PaymentRequired bool
}

// ReturnBookHandler handles the ReturnBookCommand.
type ReturnBookHandler struct {
	students student.Repository
	books    library.BookRepository
	loans    library.LoanRepository
	clock    timeutil.Clock
	events   shared.EventPublisher
}

// NewReturnBookHandler creates a new ReturnBookHandler.
func NewReturnBookHandler(
	students student.Repository,
	books library.BookRepository,
	loans library.LoanRepository,
	clock timeutil.Clock,
	events shared.EventPublisher,
) *ReturnBookHandler {
	return &ReturnBookHandler{
		students: students,
		books:    books,
		loans:    loans,
		clock:    clock,
		events:   events,
	}
}

// Handle executes the return. The fine is assessed here, at return time; the
// charge stays on the loan as unpaid until an explicit payment settles it. A
// copy returned as lost never re-enters availability.
func (h *ReturnBookHandler) Handle(ctx context.Context, cmd ReturnBookCommand) (*ReturnBookResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("library", "Return", shared.ErrInvalidInput, "invalid command", err)
	}

	asOf := cmd.AsOf
	if asOf.IsZero() {
		asOf = h.clock.Now()
	}

	condition := cmd.Condition
	if condition == "" {
		condition = library.ConditionGood
	}

	loan, err := h.loans.FindOutstanding(ctx, cmd.BookID, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("library", "Return", shared.ErrNotFound,
			"no outstanding loan for this book and student", err)
	}

	book, err := h.books.GetByID(ctx, cmd.BookID)
	if err != nil {
		return nil, shared.WrapError("library", "Return", shared.ErrNotFound, "book not found", err)
	}

	borrower, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("library", "Return", shared.ErrNotFound, "student not found", err)
	}

	assessment := library.AssessFine(book, loan, asOf, condition)

	if cmd.Notes != "" {
		loan.Notes = cmd.Notes
	}
	if err := loan.CompleteReturn(asOf, condition, assessment.TotalDue); err != nil {
		return nil, shared.WrapError("library", "Return", shared.ErrInvalidState, "loan close failed", err)
	}
	if err := h.loans.Update(ctx, loan); err != nil {
		return nil, shared.WrapError("library", "Return", shared.ErrExternalService, "loan persistence failed", err)
	}

	if assessment.ReturnToShelf {
		if err := h.books.ReturnCopy(ctx, book.ID); err != nil {
			return nil, shared.WrapError("library", "Return", shared.ErrExternalService, "availability update failed", err)
		}
	}

	if err := borrower.RecordBookReturned(); err != nil {
		return nil, shared.WrapError("library", "Return", shared.ErrInvalidState, "counter update failed", err)
	}

	cleared, err := h.isCleared(ctx, borrower.ID)
	if err != nil {
		return nil, err
	}
	borrower.SetCleared(cleared)

	if err := h.students.Update(ctx, borrower); err != nil {
		return nil, shared.WrapError("library", "Return", shared.ErrExternalService, "student update failed", err)
	}

	if h.events != nil {
		_ = h.events.Publish(shared.BookReturnedEvent{
			BaseEvent:       shared.NewBaseEvent(shared.EventBookReturned, loan.ID),
			LoanID:          loan.ID,
			BookID:          book.ID,
			BookTitle:       book.Title,
			StudentID:       borrower.ID,
			Condition:       string(condition),
			FineAmount:      assessment.FineAmount,
			ReplacementCost: assessment.ReplacementCost,
			TotalDue:        assessment.TotalDue,
		})
	}

	return &ReturnBookResult{
		Loan:            loan,
		DaysOverdue:     assessment.DaysOverdue,
		FineAmount:      assessment.FineAmount,
		ReplacementCost: assessment.ReplacementCost,
		TotalDue:        assessment.TotalDue,
		PaymentRequired: assessment.TotalDue > 0,
	}, nil
}

// isCleared recomputes the derived clearance flag: nothing outstanding and
// nothing unpaid.
func (h *ReturnBookHandler) isCleared(ctx context.Context, studentID string) (bool, error) {
	outstanding, err := h.loans.ListOutstandingByStudent(ctx, studentID)
	if err != nil {
		return false, shared.WrapError("library", "Return", shared.ErrExternalService, "loan lookup failed", err)
	}
	unpaid, err := h.loans.ListUnpaidFinesByStudent(ctx, studentID)
	if err != nil {
		return false, shared.WrapError("library", "Return", shared.ErrExternalService, "fine lookup failed", err)
	}
	return len(outstanding) == 0 && len(unpaid) == 0, nil
}
