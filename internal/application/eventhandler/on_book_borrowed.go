package eventhandler

import (
	"context"
	"log/slog"

	"github.com/campus-hub/college-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON BOOK BORROWED HANDLER
// Sends the borrower a confirmation carrying the due date and daily fine
// rate. Delivery is best-effort: a failed notification is logged, never
// retried into the borrow path.
// ═══════════════════════════════════════════════════════════════════════════

// OnBookBorrowedHandler reacts to book borrow and renew events.
type OnBookBorrowedHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewOnBookBorrowedHandler creates a new OnBookBorrowedHandler.
func NewOnBookBorrowedHandler(notifier Notifier, logger *slog.Logger) *OnBookBorrowedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnBookBorrowedHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_book_borrowed"),
	}
}

// Name identifies the handler in logs.
func (h *OnBookBorrowedHandler) Name() string {
	return "on_book_borrowed"
}

// Handle processes the event.
func (h *OnBookBorrowedHandler) Handle(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.BookBorrowedEvent)
	if !ok {
		h.logger.Warn("received unexpected event", "event_type", event.EventType())
		return nil
	}

	if h.notifier == nil {
		return nil
	}

	if err := h.notifier.Notify(ctx, e.StudentID, NotifyBookBorrowed, e.Payload()); err != nil {
		h.logger.Warn("borrow notification failed",
			"student_id", e.StudentID,
			"book_id", e.BookID,
			"error", err,
		)
	}
	return nil
}
