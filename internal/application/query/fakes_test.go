package query

import (
	"context"
	"errors"
	"time"

	"github.com/campus-hub/college-hub/internal/domain/chat"
	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/student"
)

// Minimal in-memory collaborators for the read-side tests.

type stubStudentRepo struct {
	students map[string]*student.Student
}

func (r *stubStudentRepo) Create(context.Context, *student.Student) error { return nil }
func (r *stubStudentRepo) Update(context.Context, *student.Student) error { return nil }

func (r *stubStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, student.ErrStudentNotFound
	}
	return s.Clone(), nil
}

func (r *stubStudentRepo) GetByRegNumber(_ context.Context, reg student.RegNumber) (*student.Student, error) {
	for _, s := range r.students {
		if s.RegNumber == reg {
			return s.Clone(), nil
		}
	}
	return nil, student.ErrStudentNotFound
}

func (r *stubStudentRepo) ListByNOCStatus(context.Context, student.NOCStatus, int, int) ([]*student.Student, error) {
	return nil, nil
}

type stubBookRepo struct {
	books map[string]*library.Book
}

func (r *stubBookRepo) Create(context.Context, *library.Book) error { return nil }
func (r *stubBookRepo) Update(context.Context, *library.Book) error { return nil }
func (r *stubBookRepo) TakeCopy(context.Context, string) error      { return nil }
func (r *stubBookRepo) ReturnCopy(context.Context, string) error    { return nil }

func (r *stubBookRepo) GetByID(_ context.Context, id string) (*library.Book, error) {
	b, ok := r.books[id]
	if !ok {
		return nil, library.ErrBookNotFound
	}
	return b, nil
}

type stubLoanRepo struct {
	loans []*library.Loan
}

func (r *stubLoanRepo) Create(context.Context, *library.Loan) error { return nil }
func (r *stubLoanRepo) Update(context.Context, *library.Loan) error { return nil }
func (r *stubLoanRepo) Delete(context.Context, string) error        { return nil }

func (r *stubLoanRepo) GetByID(_ context.Context, id string) (*library.Loan, error) {
	for _, l := range r.loans {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, library.ErrLoanNotFound
}

func (r *stubLoanRepo) FindOutstanding(_ context.Context, bookID, studentID string) (*library.Loan, error) {
	for _, l := range r.loans {
		if l.BookID == bookID && l.StudentID == studentID && l.IsOutstanding() {
			return l, nil
		}
	}
	return nil, library.ErrLoanNotFound
}

func (r *stubLoanRepo) ListOutstandingByStudent(_ context.Context, studentID string) ([]*library.Loan, error) {
	var out []*library.Loan
	for _, l := range r.loans {
		if l.StudentID == studentID && l.IsOutstanding() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *stubLoanRepo) ListUnpaidFinesByStudent(_ context.Context, studentID string) ([]*library.Loan, error) {
	var out []*library.Loan
	for _, l := range r.loans {
		if l.StudentID == studentID && l.HasUnpaidFine() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *stubLoanRepo) CountOverdueByStudent(_ context.Context, studentID string) (int, error) {
	count := 0
	for _, l := range r.loans {
		if l.StudentID == studentID && l.Status == library.LoanOverdue {
			count++
		}
	}
	return count, nil
}

func (r *stubLoanRepo) ListOverdue(context.Context) ([]*library.Loan, error) {
	var out []*library.Loan
	for _, l := range r.loans {
		if l.Status == library.LoanOverdue {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *stubLoanRepo) MarkOverdueBefore(context.Context, time.Time) ([]*library.Loan, error) {
	return nil, nil
}

func (r *stubLoanRepo) SettleFines(context.Context, string, time.Time, string) ([]*library.Loan, error) {
	return nil, nil
}

type stubConversationRepo struct {
	conversations map[string]*chat.Conversation
}

func (r *stubConversationRepo) FindOrCreatePair(_ context.Context, c *chat.Conversation) (*chat.Conversation, bool, error) {
	return c, true, nil
}

func (r *stubConversationRepo) GetByID(_ context.Context, id string) (*chat.Conversation, error) {
	c, ok := r.conversations[id]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	return c, nil
}

func (r *stubConversationRepo) ListByParticipant(_ context.Context, identity string, limit, offset int) ([]*chat.Conversation, error) {
	var out []*chat.Conversation
	for _, c := range r.conversations {
		if c.HasParticipant(identity) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubConversationRepo) RecordLastMessage(context.Context, string, string, string, time.Time) error {
	return nil
}

func (r *stubConversationRepo) Update(context.Context, *chat.Conversation) error { return nil }
func (r *stubConversationRepo) Delete(context.Context, string) error             { return nil }

type stubMessageRepo struct {
	messages []*chat.Message
}

func (r *stubMessageRepo) Create(context.Context, *chat.Message) error { return nil }

func (r *stubMessageRepo) GetByID(_ context.Context, id string) (*chat.Message, error) {
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, chat.ErrMessageNotFound
}

func (r *stubMessageRepo) ListByConversation(_ context.Context, conversationID string, limit int, before time.Time) ([]*chat.Message, error) {
	var out []*chat.Message
	for _, m := range r.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		out = append(out, m)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubMessageRepo) MarkRead(context.Context, []string, string) ([]string, error) {
	return nil, nil
}

func (r *stubMessageRepo) CountUnread(_ context.Context, conversationID, identity string) (int, error) {
	count := 0
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.SenderID != identity && !m.IsReadBy(identity) {
			count++
		}
	}
	return count, nil
}

// recordingCache tracks read-through traffic.
type recordingCache struct {
	entries map[string]*LibrarySummary
	gets    int
	sets    int
	failGet bool
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]*LibrarySummary)}
}

func (c *recordingCache) Get(_ context.Context, studentID string) (*LibrarySummary, error) {
	c.gets++
	if c.failGet {
		return nil, errors.New("cache down")
	}
	return c.entries[studentID], nil
}

func (c *recordingCache) Set(_ context.Context, summary *LibrarySummary) error {
	c.sets++
	c.entries[summary.StudentID] = summary
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, studentID string) error {
	delete(c.entries, studentID)
	return nil
}

func summaryTestStudent(id string) *student.Student {
	s, err := student.NewStudent(student.NewStudentParams{
		ID:              id,
		RegNumber:       "REG2026042",
		Name:            "Ravi Kumar",
		Email:           "ravi@college-hub.local",
		CurrentSemester: 4,
	})
	if err != nil {
		panic(err)
	}
	return s
}
