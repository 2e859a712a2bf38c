package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campus-hub/college-hub/internal/application/eventhandler"
	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// OVERDUE REMINDERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// NotifyOverdueReminder is the notification kind for the periodic reminder.
const NotifyOverdueReminder = "overdue_reminder"

// OverdueRemindersJob sends one reminder per student holding overdue loans.
// It groups loans by student so a student with three overdue books gets one
// message, not three.
type OverdueRemindersJob struct {
	loans    library.LoanRepository
	students student.Repository
	notifier eventhandler.Notifier
	logger   *slog.Logger
}

// NewOverdueRemindersJob creates a new OverdueRemindersJob.
func NewOverdueRemindersJob(
	loans library.LoanRepository,
	students student.Repository,
	notifier eventhandler.Notifier,
	logger *slog.Logger,
) *OverdueRemindersJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverdueRemindersJob{
		loans:    loans,
		students: students,
		notifier: notifier,
		logger:   logger.With("job", "overdue_reminders"),
	}
}

// Name returns the job name.
func (j *OverdueRemindersJob) Name() string {
	return "overdue_reminders"
}

// Description returns a human-readable description.
func (j *OverdueRemindersJob) Description() string {
	return "Sends reminder notifications to students with overdue loans"
}

// Run executes the reminder pass. A failure for one student does not stop
// reminders to the rest.
func (j *OverdueRemindersJob) Run(ctx context.Context) error {
	if j.notifier == nil {
		return nil
	}

	overdue, err := j.loans.ListOverdue(ctx)
	if err != nil {
		return fmt.Errorf("failed to list overdue loans: %w", err)
	}
	if len(overdue) == 0 {
		return nil
	}

	byStudent := make(map[string][]*library.Loan)
	for _, l := range overdue {
		byStudent[l.StudentID] = append(byStudent[l.StudentID], l)
	}

	var failed int
	for studentID, loans := range byStudent {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s, err := j.students.GetByID(ctx, studentID)
		if err != nil {
			failed++
			j.logger.Warn("skipping reminder, student lookup failed",
				"student_id", studentID,
				"error", err,
			)
			continue
		}

		bookIDs := make([]string, 0, len(loans))
		for _, l := range loans {
			bookIDs = append(bookIDs, l.BookID)
		}

		payload := map[string]interface{}{
			"student_id":    s.ID,
			"reg_number":    string(s.RegNumber),
			"overdue_count": len(loans),
			"book_ids":      bookIDs,
		}
		if err := j.notifier.Notify(ctx, s.ID, NotifyOverdueReminder, payload); err != nil {
			failed++
			j.logger.Warn("reminder delivery failed",
				"student_id", s.ID,
				"error", err,
			)
		}
	}

	j.logger.Info("overdue reminders sent",
		"students", len(byStudent),
		"failed", failed,
	)

	return nil
}
