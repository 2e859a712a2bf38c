// Package command contains write operations (CQRS - Commands).
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

// IDGenerator produces unique identifiers for new entities.
type IDGenerator interface {
	GenerateID() string
}

// ══════════════════════════════════════════════════════════════════════════════
// BORROW BOOK COMMAND
// Issues one copy of a book to a student. This is the write side of the loan
// ledger: availability is decremented conditionally so two borrowers can
// never both take the last copy.
// ══════════════════════════════════════════════════════════════════════════════

// BorrowBookCommand contains the data to issue a book.
type BorrowBookCommand struct {
	// StudentID is the internal ID of the borrower.
	StudentID string

	// BookID is the internal ID of the catalog entry.
	BookID string

	// AsOf is the borrow time (defaults to the handler clock when zero).
	AsOf time.Time
}

// Validate validates the command.
func (c BorrowBookCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("borrow_book: student_id is required")
	}
	if c.BookID == "" {
		return errors.New("borrow_book: book_id is required")
	}
	return nil
}

// BorrowBookResult contains the result of a successful borrow.
type BorrowBookResult struct {
	// Loan is the created transaction.
	Loan *library.Loan

	// BookTitle and DailyFine are echoed for confirmation messages.
	BookTitle string
	DailyFine float64

	// DueDate is when the copy must come back.
	DueDate time.Time
}

// BorrowBookHandler handles the BorrowBookCommand.
type BorrowBookHandler struct {
	students student.Repository
	books    library.BookRepository
	loans    library.LoanRepository
	ids      IDGenerator
	clock    timeutil.Clock
	events   shared.EventPublisher
}

// NewBorrowBookHandler creates a new BorrowBookHandler.
func NewBorrowBookHandler(
	students student.Repository,
	books library.BookRepository,
	loans library.LoanRepository,
	ids IDGenerator,
	clock timeutil.Clock,
	events shared.EventPublisher,
) *BorrowBookHandler {
	return &BorrowBookHandler{
		students: students,
		books:    books,
		loans:    loans,
		ids:      ids,
		clock:    clock,
		events:   events,
	}
}

// Handle executes the borrow. Preconditions are checked in policy order:
// availability first, then overdue loans, then unpaid fines. Any violation
// fails before state changes; after the conditional copy decrement, failures
// compensate by putting the copy back so the operation stays all-or-nothing.
func (h *BorrowBookHandler) Handle(ctx context.Context, cmd BorrowBookCommand) (*BorrowBookResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("library", "Borrow", shared.ErrInvalidInput, "invalid command", err)
	}

	asOf := cmd.AsOf
	if asOf.IsZero() {
		asOf = h.clock.Now()
	}

	borrower, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("library", "Borrow", shared.ErrNotFound, "student not found", err)
	}

	book, err := h.books.GetByID(ctx, cmd.BookID)
	if err != nil {
		return nil, shared.WrapError("library", "Borrow", shared.ErrNotFound, "book not found", err)
	}

	if !book.HasAvailableCopy() {
		return nil, shared.WrapError("library", "Borrow", shared.ErrPreconditionFailed,
			"no copies available", library.ErrBookUnavailable)
	}

	overdue, err := h.loans.CountOverdueByStudent(ctx, borrower.ID)
	if err != nil {
		return nil, shared.WrapError("library", "Borrow", shared.ErrExternalService, "overdue lookup failed", err)
	}

	unpaid, err := h.loans.ListUnpaidFinesByStudent(ctx, borrower.ID)
	if err != nil {
		return nil, shared.WrapError("library", "Borrow", shared.ErrExternalService, "fine lookup failed", err)
	}
	var unpaidTotal float64
	for _, l := range unpaid {
		unpaidTotal += l.FineAmount
	}

	if err := library.CheckDelinquency(overdue, unpaidTotal); err != nil {
		return nil, shared.WrapError("library", "Borrow", shared.ErrPreconditionFailed,
			"student is delinquent", err)
	}

	// Conditional decrement: the database refuses when another borrower got
	// the last copy between our read and this write.
	if err := h.books.TakeCopy(ctx, book.ID); err != nil {
		if errors.Is(err, library.ErrBookUnavailable) {
			return nil, shared.WrapError("library", "Borrow", shared.ErrPreconditionFailed,
				"no copies available", err)
		}
		return nil, shared.WrapError("library", "Borrow", shared.ErrExternalService, "copy reservation failed", err)
	}

	loan, err := library.NewLoan(h.ids.GenerateID(), book, borrower.ID, asOf)
	if err != nil {
		h.releaseCopy(ctx, book.ID)
		return nil, shared.WrapError("library", "Borrow", shared.ErrInvalidEntity, "loan creation failed", err)
	}

	if err := h.loans.Create(ctx, loan); err != nil {
		h.releaseCopy(ctx, book.ID)
		if errors.Is(err, library.ErrLoanAlreadyOutstanding) {
			return nil, shared.WrapError("library", "Borrow", shared.ErrConflict,
				"student already holds this book", err)
		}
		return nil, shared.WrapError("library", "Borrow", shared.ErrExternalService, "loan persistence failed", err)
	}

	borrower.RecordBookIssued()
	if err := h.students.Update(ctx, borrower); err != nil {
		// Undo the persisted loan as well as the copy, otherwise a
		// retried borrow would hit ErrLoanAlreadyOutstanding forever.
		_ = h.loans.Delete(ctx, loan.ID)
		h.releaseCopy(ctx, book.ID)
		return nil, shared.WrapError("library", "Borrow", shared.ErrExternalService, "student update failed", err)
	}

	if h.events != nil {
		_ = h.events.Publish(shared.BookBorrowedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventBookBorrowed, loan.ID),
			LoanID:    loan.ID,
			BookID:    book.ID,
			BookTitle: book.Title,
			StudentID: borrower.ID,
			DueDate:   loan.DueDate,
			DailyFine: book.DailyFine,
		})
	}

	return &BorrowBookResult{
		Loan:      loan,
		BookTitle: book.Title,
		DailyFine: book.DailyFine,
		DueDate:   loan.DueDate,
	}, nil
}

// releaseCopy compensates a taken copy after a later step failed.
func (h *BorrowBookHandler) releaseCopy(ctx context.Context, bookID string) {
	_ = h.books.ReturnCopy(ctx, bookID)
}
