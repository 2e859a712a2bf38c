// Package eventhandler contains the domain event handlers: notification
// fan-out and cache invalidation. Handlers run off the event bus and never
// fail the operation that produced the event.
package eventhandler

import "context"

// Notification kinds sent to students.
const (
	NotifyBookBorrowed = "book_borrowed"
	NotifyLoanOverdue  = "loan_overdue"
	NotifyNOCIssued    = "noc_issued"
)

// Notifier delivers a notification to a recipient. Implementations decide the
// channel (email today).
type Notifier interface {
	Notify(ctx context.Context, recipientID, kind string, payload map[string]interface{}) error
}
