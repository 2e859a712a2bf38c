package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK OVERDUE COMMAND
// Maintenance sweep: every active loan past its due date becomes overdue.
// Idempotent, so it is safe to run on a schedule; a failed sweep is simply
// retried on the next tick.
// ══════════════════════════════════════════════════════════════════════════════

// MarkOverdueCommand contains the sweep cutoff.
type MarkOverdueCommand struct {
	// AsOf is the cutoff (defaults to the handler clock when zero).
	AsOf time.Time
}

// MarkOverdueResult contains the sweep outcome.
type MarkOverdueResult struct {
	// Marked is how many loans transitioned to overdue in this sweep.
	Marked int

	// SweptAt is the cutoff that was applied.
	SweptAt time.Time
}

// MarkOverdueHandler handles the MarkOverdueCommand.
type MarkOverdueHandler struct {
	loans  library.LoanRepository
	clock  timeutil.Clock
	events shared.EventPublisher
	logger *slog.Logger
}

// NewMarkOverdueHandler creates a new MarkOverdueHandler.
func NewMarkOverdueHandler(
	loans library.LoanRepository,
	clock timeutil.Clock,
	events shared.EventPublisher,
	logger *slog.Logger,
) *MarkOverdueHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkOverdueHandler{loans: loans, clock: clock, events: events, logger: logger}
}

// Handle executes the sweep.
func (h *MarkOverdueHandler) Handle(ctx context.Context, cmd MarkOverdueCommand) (*MarkOverdueResult, error) {
	asOf := cmd.AsOf
	if asOf.IsZero() {
		asOf = h.clock.Now()
	}

	affected, err := h.loans.MarkOverdueBefore(ctx, asOf)
	if err != nil {
		return nil, shared.WrapError("library", "MarkOverdue", shared.ErrExternalService, "sweep failed", err)
	}

	for _, loan := range affected {
		h.logger.Info("loan marked overdue",
			"loan_id", loan.ID,
			"student_id", loan.StudentID,
			"due_date", loan.DueDate,
		)
		if h.events != nil {
			_ = h.events.Publish(shared.LoanOverdueEvent{
				BaseEvent: shared.NewBaseEvent(shared.EventLoanOverdue, loan.ID),
				LoanID:    loan.ID,
				BookID:    loan.BookID,
				StudentID: loan.StudentID,
				DueDate:   loan.DueDate,
			})
		}
	}

	return &MarkOverdueResult{Marked: len(affected), SweptAt: asOf}, nil
}
