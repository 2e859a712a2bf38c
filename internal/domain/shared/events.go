// Package shared contains common domain types, errors and events used across
// all domain packages.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the domain and may trigger notifications or cache invalidation.
const (
	// Library events
	EventBookBorrowed EventType = "library.book_borrowed"
	EventBookReturned EventType = "library.book_returned"
	EventBookRenewed  EventType = "library.book_renewed"
	EventLoanOverdue  EventType = "library.loan_overdue"
	EventFinesPaid    EventType = "library.fines_paid"

	// NOC events
	EventNOCIssued   EventType = "noc.issued"
	EventNOCRejected EventType = "noc.rejected"
	EventNOCReopened EventType = "noc.reopened"

	// Chat events
	EventMessageSent         EventType = "chat.message_sent"
	EventMessagesRead        EventType = "chat.messages_read"
	EventConversationStarted EventType = "chat.conversation_started"
	EventConversationLeft    EventType = "chat.conversation_left"

	// Presence events
	EventUserWentOnline  EventType = "presence.went_online"
	EventUserWentOffline EventType = "presence.went_offline"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a single event.
type EventHandler interface {
	// Handle processes the event. Returning an error never fails the
	// operation that produced the event; the bus logs and moves on.
	Handle(ctx context.Context, event Event) error

	// Name identifies the handler in logs.
	Name() string
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Library Events
// ═══════════════════════════════════════════════════════════════════════════

// BookBorrowedEvent is emitted after a successful borrow.
type BookBorrowedEvent struct {
	BaseEvent
	LoanID    string    `json:"loan_id"`
	BookID    string    `json:"book_id"`
	BookTitle string    `json:"book_title"`
	StudentID string    `json:"student_id"`
	DueDate   time.Time `json:"due_date"`
	DailyFine float64   `json:"daily_fine"`
}

// Payload implements Event interface.
func (e BookBorrowedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"loan_id":    e.LoanID,
		"book_id":    e.BookID,
		"book_title": e.BookTitle,
		"student_id": e.StudentID,
		"due_date":   e.DueDate,
		"daily_fine": e.DailyFine,
	}
}

// BookReturnedEvent is emitted after a successful return.
type BookReturnedEvent struct {
	BaseEvent
	LoanID          string  `json:"loan_id"`
	BookID          string  `json:"book_id"`
	BookTitle       string  `json:"book_title"`
	StudentID       string  `json:"student_id"`
	Condition       string  `json:"condition"`
	FineAmount      float64 `json:"fine_amount"`
	ReplacementCost float64 `json:"replacement_cost"`
	TotalDue        float64 `json:"total_due"`
}

// Payload implements Event interface.
func (e BookReturnedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"loan_id":          e.LoanID,
		"book_id":          e.BookID,
		"book_title":       e.BookTitle,
		"student_id":       e.StudentID,
		"condition":        e.Condition,
		"fine_amount":      e.FineAmount,
		"replacement_cost": e.ReplacementCost,
		"total_due":        e.TotalDue,
	}
}

// LoanOverdueEvent is emitted by the overdue sweep for each loan that crossed
// its due date.
type LoanOverdueEvent struct {
	BaseEvent
	LoanID    string    `json:"loan_id"`
	BookID    string    `json:"book_id"`
	StudentID string    `json:"student_id"`
	DueDate   time.Time `json:"due_date"`
}

// Payload implements Event interface.
func (e LoanOverdueEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"loan_id":    e.LoanID,
		"book_id":    e.BookID,
		"student_id": e.StudentID,
		"due_date":   e.DueDate,
	}
}

// FinesPaidEvent is emitted after a batch fine settlement.
type FinesPaidEvent struct {
	BaseEvent
	StudentID   string  `json:"student_id"`
	Amount      float64 `json:"amount"`
	LoanCount   int     `json:"loan_count"`
	PaymentMode string  `json:"payment_mode"`
}

// Payload implements Event interface.
func (e FinesPaidEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":   e.StudentID,
		"amount":       e.Amount,
		"loan_count":   e.LoanCount,
		"payment_mode": e.PaymentMode,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// NOC Events
// ═══════════════════════════════════════════════════════════════════════════

// NOCIssuedEvent is emitted when a librarian issues a No-Objection Certificate.
type NOCIssuedEvent struct {
	BaseEvent
	StudentID string    `json:"student_id"`
	IssuerID  string    `json:"issuer_id"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Payload implements Event interface.
func (e NOCIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"issuer_id":  e.IssuerID,
		"issued_at":  e.IssuedAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Chat Events
// ═══════════════════════════════════════════════════════════════════════════

// MessageSentEvent is emitted after a message is persisted.
type MessageSentEvent struct {
	BaseEvent
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
}

// Payload implements Event interface.
func (e MessageSentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"message_id":      e.MessageID,
		"conversation_id": e.ConversationID,
		"sender_id":       e.SenderID,
	}
}
