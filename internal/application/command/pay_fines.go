package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/internal/domain/student"
	"github.com/campus-hub/college-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAY FINES COMMAND
// Settles every unpaid fine of a student in one atomic batch. Partial
// payments are rejected: the tendered amount must match the outstanding sum
// within a small epsilon.
// ══════════════════════════════════════════════════════════════════════════════

// PaymentMode values accepted at the counter.
const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentUPI    = "upi"
	PaymentOnline = "online"
)

// PayFinesCommand contains the data for a batch settlement.
type PayFinesCommand struct {
	// StudentID is the internal ID of the paying student.
	StudentID string

	// Amount tendered. Must equal the outstanding total within 0.01.
	Amount float64

	// PaymentMode records how the fine was paid (defaults to cash).
	PaymentMode string

	// AsOf is the payment time (defaults to the handler clock when zero).
	AsOf time.Time
}

// Validate validates the command.
func (c PayFinesCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("pay_fines: student_id is required")
	}
	if c.Amount < 0 {
		return errors.New("pay_fines: amount cannot be negative")
	}
	switch c.PaymentMode {
	case "", PaymentCash, PaymentCard, PaymentUPI, PaymentOnline:
	default:
		return fmt.Errorf("pay_fines: unknown payment mode %q", c.PaymentMode)
	}
	return nil
}

// PayFinesResult contains the settlement receipt.
type PayFinesResult struct {
	// PaidAmount is the settled total.
	PaidAmount float64

	// LoanCount is how many loans were settled.
	LoanCount int

	// ReceiptNumber identifies the settlement.
	ReceiptNumber string
}

// PayFinesHandler handles the PayFinesCommand.
type PayFinesHandler struct {
	students student.Repository
	loans    library.LoanRepository
	clock    timeutil.Clock
	events   shared.EventPublisher
}

// NewPayFinesHandler creates a new PayFinesHandler.
func NewPayFinesHandler(
	students student.Repository,
	loans library.LoanRepository,
	clock timeutil.Clock,
	events shared.EventPublisher,
) *PayFinesHandler {
	return &PayFinesHandler{students: students, loans: loans, clock: clock, events: events}
}

// Handle executes the settlement. The repository marks every matched loan
// paid inside one transaction, so a concurrent reader never observes a
// half-settled student.
func (h *PayFinesHandler) Handle(ctx context.Context, cmd PayFinesCommand) (*PayFinesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("library", "PayFines", shared.ErrInvalidInput, "invalid command", err)
	}

	asOf := cmd.AsOf
	if asOf.IsZero() {
		asOf = h.clock.Now()
	}

	mode := cmd.PaymentMode
	if mode == "" {
		mode = PaymentCash
	}

	unpaid, err := h.loans.ListUnpaidFinesByStudent(ctx, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("library", "PayFines", shared.ErrExternalService, "fine lookup failed", err)
	}
	if len(unpaid) == 0 {
		return nil, shared.WrapError("library", "PayFines", shared.ErrNotFound,
			"nothing to settle", library.ErrNoUnpaidFines)
	}

	var total float64
	for _, l := range unpaid {
		total += l.FineAmount
	}

	if !library.PaymentMatches(cmd.Amount, total) {
		return nil, shared.WrapError("library", "PayFines", shared.ErrPreconditionFailed,
			fmt.Sprintf("expected %.2f, provided %.2f", total, cmd.Amount),
			library.ErrPaymentAmountMismatch)
	}

	settled, err := h.loans.SettleFines(ctx, cmd.StudentID, asOf, mode)
	if err != nil {
		return nil, shared.WrapError("library", "PayFines", shared.ErrExternalService, "settlement failed", err)
	}

	// With fines settled the student may be clear again.
	if borrower, err := h.students.GetByID(ctx, cmd.StudentID); err == nil {
		outstanding, lerr := h.loans.ListOutstandingByStudent(ctx, cmd.StudentID)
		if lerr == nil {
			borrower.SetCleared(len(outstanding) == 0)
			_ = h.students.Update(ctx, borrower)
		}
	}

	if h.events != nil {
		_ = h.events.Publish(shared.FinesPaidEvent{
			BaseEvent:   shared.NewBaseEvent(shared.EventFinesPaid, cmd.StudentID),
			StudentID:   cmd.StudentID,
			Amount:      total,
			LoanCount:   len(settled),
			PaymentMode: mode,
		})
	}

	return &PayFinesResult{
		PaidAmount:    total,
		LoanCount:     len(settled),
		ReceiptNumber: fmt.Sprintf("FINE-%d", asOf.UnixMilli()),
	}, nil
}
