// Package jobs contains the scheduled jobs of College Hub: the overdue loan
// sweep and reminder notifications for students holding overdue books.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campus-hub/college-hub/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK OVERDUE LOANS JOB
// ══════════════════════════════════════════════════════════════════════════════

// MarkOverdueLoansJob runs the overdue sweep on a schedule. The sweep itself
// is idempotent, so overlapping or retried runs are harmless.
type MarkOverdueLoansJob struct {
	handler *command.MarkOverdueHandler
	logger  *slog.Logger
}

// NewMarkOverdueLoansJob creates a new MarkOverdueLoansJob.
func NewMarkOverdueLoansJob(handler *command.MarkOverdueHandler, logger *slog.Logger) *MarkOverdueLoansJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkOverdueLoansJob{handler: handler, logger: logger}
}

// Name returns the job name.
func (j *MarkOverdueLoansJob) Name() string {
	return "mark_overdue_loans"
}

// Description returns a human-readable description.
func (j *MarkOverdueLoansJob) Description() string {
	return "Transitions active loans past their due date to overdue status"
}

// Run executes the sweep.
func (j *MarkOverdueLoansJob) Run(ctx context.Context) error {
	result, err := j.handler.Handle(ctx, command.MarkOverdueCommand{})
	if err != nil {
		return fmt.Errorf("overdue sweep failed: %w", err)
	}

	j.logger.Info("overdue sweep completed",
		"marked", result.Marked,
		"swept_at", result.SweptAt,
	)

	return nil
}
