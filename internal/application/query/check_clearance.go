package query

import (
	"context"
	"errors"

	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK CLEARANCE QUERY
// Evaluates the book-return quota for a semester registration attempt.
// ══════════════════════════════════════════════════════════════════════════════

// CheckClearanceQuery identifies the student and the semester they want to
// register into.
type CheckClearanceQuery struct {
	StudentID      string
	TargetSemester int
}

// Validate validates the query.
func (q CheckClearanceQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("check_clearance: student_id is required")
	}
	if q.TargetSemester < 1 || q.TargetSemester > 8 {
		return errors.New("check_clearance: target semester must be between 1 and 8")
	}
	return nil
}

// CheckClearanceHandler handles the CheckClearanceQuery.
type CheckClearanceHandler struct {
	students student.Repository
}

// NewCheckClearanceHandler creates a new CheckClearanceHandler.
func NewCheckClearanceHandler(students student.Repository) *CheckClearanceHandler {
	return &CheckClearanceHandler{students: students}
}

// Handle evaluates the quota from the student's cumulative counters.
func (h *CheckClearanceHandler) Handle(ctx context.Context, q CheckClearanceQuery) (*library.ClearanceResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("library", "CheckClearance", shared.ErrInvalidInput, "invalid query", err)
	}

	s, err := h.students.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, shared.WrapError("library", "CheckClearance", shared.ErrNotFound, "student not found", err)
	}

	result := library.EvaluateClearance(
		int(s.CurrentSemester),
		q.TargetSemester,
		s.TotalBooksIssued,
		s.TotalBooksReturned,
	)
	return &result, nil
}
