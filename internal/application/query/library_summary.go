package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/internal/domain/student"
	"github.com/campus-hub/college-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIBRARY SUMMARY QUERY
// Per-student dashboard summary with a short-TTL read-through cache. Cache
// misses and cache failures both fall through to the primary store; the
// cache can never make this query wrong for money decisions because the NOC
// path computes from the store directly.
// ══════════════════════════════════════════════════════════════════════════════

// LibrarySummary is a per-student snapshot of library standing.
type LibrarySummary struct {
	StudentID       string    `json:"student_id"`
	RegNumber       string    `json:"reg_number"`
	CurrentSemester int       `json:"current_semester"`
	TotalIssued     int       `json:"total_issued"`
	TotalReturned   int       `json:"total_returned"`
	PendingLoans    int       `json:"pending_loans"`
	OverdueLoans    int       `json:"overdue_loans"`
	UnpaidFineTotal float64   `json:"unpaid_fine_total"`
	LibraryCleared  bool      `json:"library_cleared"`
	NOCStatus       string    `json:"noc_status"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// SummaryCache caches library summaries keyed by student ID.
type SummaryCache interface {
	Get(ctx context.Context, studentID string) (*LibrarySummary, error)
	Set(ctx context.Context, summary *LibrarySummary) error
	Invalidate(ctx context.Context, studentID string) error
}

// GetLibrarySummaryQuery identifies the student.
type GetLibrarySummaryQuery struct {
	StudentID string

	// BypassCache forces a read from the primary store.
	BypassCache bool
}

// Validate validates the query.
func (q GetLibrarySummaryQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("library_summary: student_id is required")
	}
	return nil
}

// GetLibrarySummaryHandler handles the GetLibrarySummaryQuery.
type GetLibrarySummaryHandler struct {
	students student.Repository
	loans    library.LoanRepository
	cache    SummaryCache
	clock    timeutil.Clock
	logger   *slog.Logger
}

// NewGetLibrarySummaryHandler creates a new GetLibrarySummaryHandler.
// The cache is optional; pass nil to always read the primary store.
func NewGetLibrarySummaryHandler(
	students student.Repository,
	loans library.LoanRepository,
	cache SummaryCache,
	clock timeutil.Clock,
	logger *slog.Logger,
) *GetLibrarySummaryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLibrarySummaryHandler{
		students: students,
		loans:    loans,
		cache:    cache,
		clock:    clock,
		logger:   logger,
	}
}

// Handle builds the summary, read-through on the cache.
func (h *GetLibrarySummaryHandler) Handle(ctx context.Context, q GetLibrarySummaryQuery) (*LibrarySummary, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("library", "Summary", shared.ErrInvalidInput, "invalid query", err)
	}

	if h.cache != nil && !q.BypassCache {
		cached, err := h.cache.Get(ctx, q.StudentID)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil {
			h.logger.Warn("summary cache read failed", "student_id", q.StudentID, "error", err)
		}
	}

	s, err := h.students.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, shared.WrapError("library", "Summary", shared.ErrNotFound, "student not found", err)
	}

	outstanding, err := h.loans.ListOutstandingByStudent(ctx, s.ID)
	if err != nil {
		return nil, shared.WrapError("library", "Summary", shared.ErrExternalService, "loan lookup failed", err)
	}
	unpaid, err := h.loans.ListUnpaidFinesByStudent(ctx, s.ID)
	if err != nil {
		return nil, shared.WrapError("library", "Summary", shared.ErrExternalService, "fine lookup failed", err)
	}

	now := h.clock.Now()
	overdue := 0
	for _, l := range outstanding {
		if l.Status == library.LoanOverdue || l.IsPastDue(now) {
			overdue++
		}
	}

	var fineTotal float64
	for _, l := range unpaid {
		fineTotal += l.FineAmount
	}

	summary := &LibrarySummary{
		StudentID:       s.ID,
		RegNumber:       s.RegNumber.String(),
		CurrentSemester: int(s.CurrentSemester),
		TotalIssued:     s.TotalBooksIssued,
		TotalReturned:   s.TotalBooksReturned,
		PendingLoans:    len(outstanding),
		OverdueLoans:    overdue,
		UnpaidFineTotal: fineTotal,
		LibraryCleared:  s.LibraryCleared,
		NOCStatus:       string(s.NOCStatus),
		GeneratedAt:     now,
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, summary); err != nil {
			h.logger.Warn("summary cache write failed", "student_id", s.ID, "error", err)
		}
	}

	return summary, nil
}
