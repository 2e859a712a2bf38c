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
// ISSUE NOC COMMAND
// Approves a student's No-Objection Certificate. Eligibility is re-checked
// here, at issue time, never taken from a cached report: the student must
// hold no outstanding loan and owe no fine.
// ══════════════════════════════════════════════════════════════════════════════

// ErrNotEligible - the student still owes books or money.
var ErrNotEligible = errors.New("student is not eligible for NOC")

// IssueNOCCommand contains the data to issue an NOC.
type IssueNOCCommand struct {
	// StudentID is the internal ID of the student.
	StudentID string

	// IssuerID is the librarian performing the approval.
	IssuerID string

	// AsOf is the issue time (defaults to the handler clock when zero).
	AsOf time.Time
}

// Validate validates the command.
func (c IssueNOCCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("issue_noc: student_id is required")
	}
	if c.IssuerID == "" {
		return errors.New("issue_noc: issuer_id is required")
	}
	return nil
}

// IssueNOCResult contains the issued certificate details.
type IssueNOCResult struct {
	StudentID string
	IssuerID  string
	IssuedAt  time.Time
}

// IssueNOCHandler handles the IssueNOCCommand.
type IssueNOCHandler struct {
	students student.Repository
	loans    library.LoanRepository
	clock    timeutil.Clock
	events   shared.EventPublisher
}

// NewIssueNOCHandler creates a new IssueNOCHandler.
func NewIssueNOCHandler(
	students student.Repository,
	loans library.LoanRepository,
	clock timeutil.Clock,
	events shared.EventPublisher,
) *IssueNOCHandler {
	return &IssueNOCHandler{students: students, loans: loans, clock: clock, events: events}
}

// Handle executes the approval.
func (h *IssueNOCHandler) Handle(ctx context.Context, cmd IssueNOCCommand) (*IssueNOCResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("noc", "Issue", shared.ErrInvalidInput, "invalid command", err)
	}

	asOf := cmd.AsOf
	if asOf.IsZero() {
		asOf = h.clock.Now()
	}

	s, err := h.students.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, shared.WrapError("noc", "Issue", shared.ErrNotFound, "student not found", err)
	}

	outstanding, err := h.loans.ListOutstandingByStudent(ctx, s.ID)
	if err != nil {
		return nil, shared.WrapError("noc", "Issue", shared.ErrExternalService, "loan lookup failed", err)
	}
	unpaid, err := h.loans.ListUnpaidFinesByStudent(ctx, s.ID)
	if err != nil {
		return nil, shared.WrapError("noc", "Issue", shared.ErrExternalService, "fine lookup failed", err)
	}

	if len(outstanding) > 0 || len(unpaid) > 0 {
		var fineTotal float64
		for _, l := range unpaid {
			fineTotal += l.FineAmount
		}
		return nil, shared.WrapError("noc", "Issue", shared.ErrPreconditionFailed,
			fmt.Sprintf("%d pending books, %.2f unpaid fines", len(outstanding), fineTotal),
			ErrNotEligible)
	}

	if err := s.ApproveNOC(cmd.IssuerID, asOf); err != nil {
		return nil, shared.WrapError("noc", "Issue", shared.ErrStateTransition, "approval refused", err)
	}

	if err := h.students.Update(ctx, s); err != nil {
		return nil, shared.WrapError("noc", "Issue", shared.ErrExternalService, "student update failed", err)
	}

	if h.events != nil {
		_ = h.events.Publish(shared.NOCIssuedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventNOCIssued, s.ID),
			StudentID: s.ID,
			IssuerID:  cmd.IssuerID,
			IssuedAt:  asOf,
		})
	}

	return &IssueNOCResult{StudentID: s.ID, IssuerID: cmd.IssuerID, IssuedAt: asOf}, nil
}
