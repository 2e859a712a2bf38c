package query

import (
	"context"
	"errors"

	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK NOC ELIGIBILITY QUERY
// Read-only eligibility report for the No-Objection Certificate. Always
// computed from the primary store; the cached library summary is for
// dashboards, not for this decision.
// ══════════════════════════════════════════════════════════════════════════════

// CheckNOCEligibilityQuery identifies the student to evaluate.
type CheckNOCEligibilityQuery struct {
	StudentID string

	// TargetSemester, when set, additionally evaluates the book-return
	// clearance for registering into that semester, so one call answers the
	// whole registration gate. Zero skips the clearance part.
	TargetSemester int
}

// Validate validates the query.
func (q CheckNOCEligibilityQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("check_noc_eligibility: student_id is required")
	}
	if q.TargetSemester != 0 && (q.TargetSemester < 1 || q.TargetSemester > 8) {
		return errors.New("check_noc_eligibility: target semester must be between 1 and 8")
	}
	return nil
}

// SettlementOption is one way the student can clear their record.
type SettlementOption struct {
	// Code identifies the option (return_books_pay_fines, pay_full_cost).
	Code string

	// Description explains the option in plain words.
	Description string

	// Amount is the money part of the option.
	Amount float64
}

// Settlement option codes.
const (
	OptionReturnAndPay = "return_books_pay_fines"
	OptionPayFullCost  = "pay_full_cost"
)

// EligibilityReport is the full NOC eligibility picture for one student.
type EligibilityReport struct {
	StudentID string
	NOCStatus student.NOCStatus

	// CanGetNOC is true when nothing is pending and nothing is owed.
	CanGetNOC bool

	// PendingLoanCount is the number of copies still out.
	PendingLoanCount int

	// PendingFineTotal is the sum of assessed, unpaid fines.
	PendingFineTotal float64

	// ReplacementTotal is the combined replacement cost of every pending
	// book, charged if the student chooses not to return them.
	ReplacementTotal float64

	// TotalAmount = PendingFineTotal + ReplacementTotal.
	TotalAmount float64

	// Options lists the ways to clear the record; empty when CanGetNOC.
	Options []SettlementOption

	// Clearance is the book-return quota evaluation for the requested
	// target semester; nil when the query named no target semester.
	Clearance *library.ClearanceResult
}

// CheckNOCEligibilityHandler handles the CheckNOCEligibilityQuery.
type CheckNOCEligibilityHandler struct {
	students student.Repository
	books    library.BookRepository
	loans    library.LoanRepository
}

// NewCheckNOCEligibilityHandler creates a new CheckNOCEligibilityHandler.
func NewCheckNOCEligibilityHandler(
	students student.Repository,
	books library.BookRepository,
	loans library.LoanRepository,
) *CheckNOCEligibilityHandler {
	return &CheckNOCEligibilityHandler{students: students, books: books, loans: loans}
}

// Handle builds the report. Reading twice yields the same report when nothing
// changed in between.
func (h *CheckNOCEligibilityHandler) Handle(ctx context.Context, q CheckNOCEligibilityQuery) (*EligibilityReport, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("noc", "CheckEligibility", shared.ErrInvalidInput, "invalid query", err)
	}

	s, err := h.students.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, shared.WrapError("noc", "CheckEligibility", shared.ErrNotFound, "student not found", err)
	}

	outstanding, err := h.loans.ListOutstandingByStudent(ctx, s.ID)
	if err != nil {
		return nil, shared.WrapError("noc", "CheckEligibility", shared.ErrExternalService, "loan lookup failed", err)
	}
	unpaid, err := h.loans.ListUnpaidFinesByStudent(ctx, s.ID)
	if err != nil {
		return nil, shared.WrapError("noc", "CheckEligibility", shared.ErrExternalService, "fine lookup failed", err)
	}

	var fineTotal float64
	for _, l := range unpaid {
		fineTotal += l.FineAmount
	}

	var replacementTotal float64
	for _, l := range outstanding {
		book, err := h.books.GetByID(ctx, l.BookID)
		if err != nil {
			return nil, shared.WrapError("noc", "CheckEligibility", shared.ErrExternalService, "book lookup failed", err)
		}
		replacementTotal += book.ReplacementCost
	}

	report := &EligibilityReport{
		StudentID:        s.ID,
		NOCStatus:        s.NOCStatus,
		CanGetNOC:        len(outstanding) == 0 && len(unpaid) == 0,
		PendingLoanCount: len(outstanding),
		PendingFineTotal: fineTotal,
		ReplacementTotal: replacementTotal,
		TotalAmount:      fineTotal + replacementTotal,
	}

	if q.TargetSemester != 0 {
		clearance := library.EvaluateClearance(
			int(s.CurrentSemester),
			q.TargetSemester,
			s.TotalBooksIssued,
			s.TotalBooksReturned,
		)
		report.Clearance = &clearance
	}

	if !report.CanGetNOC {
		report.Options = []SettlementOption{
			{
				Code:        OptionReturnAndPay,
				Description: "Return all pending books and pay the outstanding fines",
				Amount:      fineTotal,
			},
			{
				Code:        OptionPayFullCost,
				Description: "Pay the full replacement cost of pending books plus fines",
				Amount:      fineTotal + replacementTotal,
			},
		}
	}

	return report, nil
}
