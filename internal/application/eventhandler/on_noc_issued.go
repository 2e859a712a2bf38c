package eventhandler

import (
	"context"
	"log/slog"

	"github.com/campus-hub/college-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON NOC ISSUED HANDLER
// Congratulates the student and records the issue in the audit log.
// ═══════════════════════════════════════════════════════════════════════════

// OnNOCIssuedHandler reacts to NOC approvals.
type OnNOCIssuedHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewOnNOCIssuedHandler creates a new OnNOCIssuedHandler.
func NewOnNOCIssuedHandler(notifier Notifier, logger *slog.Logger) *OnNOCIssuedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnNOCIssuedHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_noc_issued"),
	}
}

// Name identifies the handler in logs.
func (h *OnNOCIssuedHandler) Name() string {
	return "on_noc_issued"
}

// Handle processes the event.
func (h *OnNOCIssuedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.NOCIssuedEvent)
	if !ok {
		h.logger.Warn("received unexpected event", "event_type", event.EventType())
		return nil
	}

	h.logger.Info("noc issued",
		"student_id", e.StudentID,
		"issuer_id", e.IssuerID,
		"issued_at", e.IssuedAt,
	)

	if h.notifier == nil {
		return nil
	}

	if err := h.notifier.Notify(ctx, e.StudentID, NotifyNOCIssued, e.Payload()); err != nil {
		h.logger.Warn("noc notification failed",
			"student_id", e.StudentID,
			"error", err,
		)
	}
	return nil
}
