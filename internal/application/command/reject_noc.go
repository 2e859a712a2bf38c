package command

import (
	"context"
	"errors"

	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// REJECT / REOPEN NOC COMMANDS
// A rejection is explicit and reversible: reopen moves the NOC back to
// pending so the student can clear their record and try again.
// ══════════════════════════════════════════════════════════════════════════════

// RejectNOCCommand contains the data to reject a pending NOC.
type RejectNOCCommand struct {
	StudentID string
	Reason    string
}

// Validate validates the command.
func (c RejectNOCCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("reject_noc: student_id is required")
	}
	return nil
}

// RejectNOCHandler handles the RejectNOCCommand.
type RejectNOCHandler struct {
	students student.Repository
	events   shared.EventPublisher
}

// NewRejectNOCHandler creates a new RejectNOCHandler.
func NewRejectNOCHandler(students student.Repository, events shared.EventPublisher) *RejectNOCHandler {
	return &RejectNOCHandler{students: students, events: events}
}

// Handle executes the rejection.
func (h *RejectNOCHandler) Handle(ctx context.Context, cmd RejectNOCCommand) error {
	if err := cmd.Validate(); err != nil {
		return shared.WrapError("noc", "Reject", shared.ErrInvalidInput, "invalid command", err)
	}

	s, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return shared.WrapError("noc", "Reject", shared.ErrNotFound, "student not found", err)
	}

	if err := s.RejectNOC(); err != nil {
		return shared.WrapError("noc", "Reject", shared.ErrStateTransition, "rejection refused", err)
	}

	if err := h.students.Update(ctx, s); err != nil {
		return shared.WrapError("noc", "Reject", shared.ErrExternalService, "student update failed", err)
	}

	if h.events != nil {
		_ = h.events.Publish(shared.NOCIssuedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventNOCRejected, s.ID),
			StudentID: s.ID,
		})
	}
	return nil
}

// ReopenNOCCommand moves a rejected NOC back to pending.
type ReopenNOCCommand struct {
	StudentID string
}

// Validate validates the command.
func (c ReopenNOCCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("reopen_noc: student_id is required")
	}
	return nil
}

// ReopenNOCHandler handles the ReopenNOCCommand.
type ReopenNOCHandler struct {
	students student.Repository
	events   shared.EventPublisher
}

// NewReopenNOCHandler creates a new ReopenNOCHandler.
func NewReopenNOCHandler(students student.Repository, events shared.EventPublisher) *ReopenNOCHandler {
	return &ReopenNOCHandler{students: students, events: events}
}

// Handle executes the reopen.
func (h *ReopenNOCHandler) Handle(ctx context.Context, cmd ReopenNOCCommand) error {
	if err := cmd.Validate(); err != nil {
		return shared.WrapError("noc", "Reopen", shared.ErrInvalidInput, "invalid command", err)
	}

	s, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return shared.WrapError("noc", "Reopen", shared.ErrNotFound, "student not found", err)
	}

	if err := s.ReopenNOC(); err != nil {
		return shared.WrapError("noc", "Reopen", shared.ErrStateTransition, "reopen refused", err)
	}

	if err := h.students.Update(ctx, s); err != nil {
		return shared.WrapError("noc", "Reopen", shared.ErrExternalService, "student update failed", err)
	}

	if h.events != nil {
		_ = h.events.Publish(shared.NOCIssuedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventNOCReopened, s.ID),
			StudentID: s.ID,
		})
	}
	return nil
}
