package eventhandler

import (
	"context"
	"log/slog"

	"github.com/campus-hub/college-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// INVALIDATE LIBRARY SUMMARY HANDLER
// Drops the cached per-student library summary whenever a loan-affecting
// event lands, so dashboard reads converge quickly. The cache carries a
// short TTL anyway; this just tightens the window.
// ═══════════════════════════════════════════════════════════════════════════

// SummaryInvalidator invalidates a student's cached library summary.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, studentID string) error
}

// InvalidateLibrarySummaryHandler evicts summaries on library writes.
// Subscribe it to book_borrowed, book_returned, book_renewed, loan_overdue,
// fines_paid and noc.issued.
type InvalidateLibrarySummaryHandler struct {
	cache  SummaryInvalidator
	logger *slog.Logger
}

// NewInvalidateLibrarySummaryHandler creates a new handler.
func NewInvalidateLibrarySummaryHandler(cache SummaryInvalidator, logger *slog.Logger) *InvalidateLibrarySummaryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvalidateLibrarySummaryHandler{
		cache:  cache,
		logger: logger.With("handler", "invalidate_library_summary"),
	}
}

// Name identifies the handler in logs.
func (h *InvalidateLibrarySummaryHandler) Name() string {
	return "invalidate_library_summary"
}

// Handle evicts the summary of the student named in the event payload.
func (h *InvalidateLibrarySummaryHandler) Handle(ctx context.Context, event shared.Event) error {
	if h.cache == nil {
		return nil
	}

	studentID, _ := event.Payload()["student_id"].(string)
	if studentID == "" {
		return nil
	}

	if err := h.cache.Invalidate(ctx, studentID); err != nil {
		h.logger.Warn("summary invalidation failed",
			"student_id", studentID,
			"event_type", event.EventType(),
			"error", err,
		)
	}
	return nil
}
