package eventhandler

import (
	"context"
	"log/slog"

	"github.com/campus-hub/college-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON LOAN OVERDUE HANDLER
// Tells the student their loan crossed its due date and fines are accruing.
// ═══════════════════════════════════════════════════════════════════════════

// OnLoanOverdueHandler reacts to the overdue sweep.
type OnLoanOverdueHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewOnLoanOverdueHandler creates a new OnLoanOverdueHandler.
func NewOnLoanOverdueHandler(notifier Notifier, logger *slog.Logger) *OnLoanOverdueHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnLoanOverdueHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_loan_overdue"),
	}
}

// Name identifies the handler in logs.
func (h *OnLoanOverdueHandler) Name() string {
	return "on_loan_overdue"
}

// Handle processes the event.
func (h *OnLoanOverdueHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.LoanOverdueEvent)
	if !ok {
		h.logger.Warn("received unexpected event", "event_type", event.EventType())
		return nil
	}

	if h.notifier == nil {
		return nil
	}

	if err := h.notifier.Notify(ctx, e.StudentID, NotifyLoanOverdue, e.Payload()); err != nil {
		h.logger.Warn("overdue notification failed",
			"student_id", e.StudentID,
			"loan_id", e.LoanID,
			"error", err,
		)
	}
	return nil
}
