package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campus-hub/college-hub/internal/domain/chat"
	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
	"github.com/campus-hub/college-hub/internal/domain/student"
)

// In-memory repositories backing the handler tests.

type fakeStudentRepo struct {
	mu       sync.Mutex
	students map[string]*student.Student
}

func newFakeStudentRepo(students ...*student.Student) *fakeStudentRepo {
	r := &fakeStudentRepo{students: make(map[string]*student.Student)}
	for _, s := range students {
		r.students[s.ID] = s.Clone()
	}
	return r
}

func (r *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.students {
		if existing.RegNumber == s.RegNumber {
			return student.ErrStudentAlreadyExists
		}
	}
	r.students[s.ID] = s.Clone()
	return nil
}

func (r *fakeStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return nil, student.ErrStudentNotFound
	}
	return s.Clone(), nil
}

func (r *fakeStudentRepo) GetByRegNumber(_ context.Context, reg student.RegNumber) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if s.RegNumber == reg {
			return s.Clone(), nil
		}
	}
	return nil, student.ErrStudentNotFound
}

func (r *fakeStudentRepo) Update(_ context.Context, s *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[s.ID]; !ok {
		return student.ErrStudentNotFound
	}
	r.students[s.ID] = s.Clone()
	return nil
}

func (r *fakeStudentRepo) ListByNOCStatus(_ context.Context, status student.NOCStatus, limit, offset int) ([]*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*student.Student
	for _, s := range r.students {
		if s.NOCStatus == status {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

type fakeBookRepo struct {
	mu    sync.Mutex
	books map[string]*library.Book
}

func newFakeBookRepo(books ...*library.Book) *fakeBookRepo {
	r := &fakeBookRepo{books: make(map[string]*library.Book)}
	for _, b := range books {
		copied := *b
		r.books[b.ID] = &copied
	}
	return r
}

func (r *fakeBookRepo) Create(_ context.Context, b *library.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *b
	r.books[b.ID] = &copied
	return nil
}

func (r *fakeBookRepo) GetByID(_ context.Context, id string) (*library.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return nil, library.ErrBookNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBookRepo) Update(_ context.Context, b *library.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *b
	r.books[b.ID] = &copied
	return nil
}

func (r *fakeBookRepo) TakeCopy(_ context.Context, bookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[bookID]
	if !ok {
		return library.ErrBookNotFound
	}
	return b.TakeCopy()
}

func (r *fakeBookRepo) ReturnCopy(_ context.Context, bookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[bookID]
	if !ok {
		return library.ErrBookNotFound
	}
	b.ReturnCopy()
	return nil
}

type fakeLoanRepo struct {
	mu    sync.Mutex
	loans map[string]*library.Loan
}

func newFakeLoanRepo(loans ...*library.Loan) *fakeLoanRepo {
	r := &fakeLoanRepo{loans: make(map[string]*library.Loan)}
	for _, l := range loans {
		copied := *l
		r.loans[l.ID] = &copied
	}
	return r
}

func (r *fakeLoanRepo) Create(_ context.Context, l *library.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.loans {
		if existing.BookID == l.BookID && existing.StudentID == l.StudentID && existing.IsOutstanding() {
			return library.ErrLoanAlreadyOutstanding
		}
	}
	copied := *l
	r.loans[l.ID] = &copied
	return nil
}

func (r *fakeLoanRepo) GetByID(_ context.Context, id string) (*library.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok {
		return nil, library.ErrLoanNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *fakeLoanRepo) FindOutstanding(_ context.Context, bookID, studentID string) (*library.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.loans {
		if l.BookID == bookID && l.StudentID == studentID && l.IsOutstanding() {
			copied := *l
			return &copied, nil
		}
	}
	return nil, library.ErrLoanNotFound
}

func (r *fakeLoanRepo) ListOutstandingByStudent(_ context.Context, studentID string) ([]*library.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*library.Loan
	for _, l := range r.loans {
		if l.StudentID == studentID && l.IsOutstanding() {
			copied := *l
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeLoanRepo) ListUnpaidFinesByStudent(_ context.Context, studentID string) ([]*library.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*library.Loan
	for _, l := range r.loans {
		if l.StudentID == studentID && l.HasUnpaidFine() {
			copied := *l
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeLoanRepo) CountOverdueByStudent(_ context.Context, studentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, l := range r.loans {
		if l.StudentID == studentID && l.Status == library.LoanOverdue {
			count++
		}
	}
	return count, nil
}

func (r *fakeLoanRepo) ListOverdue(_ context.Context) ([]*library.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*library.Loan
	for _, l := range r.loans {
		if l.Status == library.LoanOverdue {
			copied := *l
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeLoanRepo) Update(_ context.Context, l *library.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loans[l.ID]; !ok {
		return library.ErrLoanNotFound
	}
	copied := *l
	r.loans[l.ID] = &copied
	return nil
}

func (r *fakeLoanRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loans[id]; !ok {
		return library.ErrLoanNotFound
	}
	delete(r.loans, id)
	return nil
}

func (r *fakeLoanRepo) MarkOverdueBefore(_ context.Context, cutoff time.Time) ([]*library.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected []*library.Loan
	for _, l := range r.loans {
		if l.MarkOverdue(cutoff) {
			copied := *l
			affected = append(affected, &copied)
		}
	}
	return affected, nil
}

func (r *fakeLoanRepo) SettleFines(_ context.Context, studentID string, at time.Time, paymentMode string) ([]*library.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var settled []*library.Loan
	for _, l := range r.loans {
		if l.StudentID == studentID && l.HasUnpaidFine() {
			l.SettleFine(at, paymentMode)
			copied := *l
			settled = append(settled, &copied)
		}
	}
	return settled, nil
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*chat.Conversation
	byPair        map[string]string
}

func newFakeConversationRepo(conversations ...*chat.Conversation) *fakeConversationRepo {
	r := &fakeConversationRepo{
		conversations: make(map[string]*chat.Conversation),
		byPair:        make(map[string]string),
	}
	for _, c := range conversations {
		r.store(c)
	}
	return r
}

func (r *fakeConversationRepo) store(c *chat.Conversation) {
	copied := *c
	copied.Participants = append([]string(nil), c.Participants...)
	r.conversations[c.ID] = &copied
	if len(c.Participants) == 2 {
		r.byPair[chat.PairKey(c.Participants[0], c.Participants[1])] = c.ID
	}
}

func (r *fakeConversationRepo) FindOrCreatePair(_ context.Context, candidate *chat.Conversation) (*chat.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := chat.PairKey(candidate.Participants[0], candidate.Participants[1])
	if id, ok := r.byPair[key]; ok {
		existing := r.conversations[id]
		copied := *existing
		return &copied, false, nil
	}
	r.store(candidate)
	copied := *candidate
	return &copied, true, nil
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	copied := *c
	copied.Participants = append([]string(nil), c.Participants...)
	return &copied, nil
}

func (r *fakeConversationRepo) ListByParticipant(_ context.Context, identity string, limit, offset int) ([]*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*chat.Conversation
	for _, c := range r.conversations {
		if c.HasParticipant(identity) {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) RecordLastMessage(_ context.Context, conversationID, content, senderID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return chat.ErrConversationNotFound
	}
	c.RecordLastMessage(content, senderID, at)
	return nil
}

func (r *fakeConversationRepo) Update(_ context.Context, c *chat.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[c.ID]; !ok {
		return chat.ErrConversationNotFound
	}
	r.store(c)
	return nil
}

func (r *fakeConversationRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return chat.ErrConversationNotFound
	}
	delete(r.conversations, id)
	for key, cid := range r.byPair {
		if cid == c.ID {
			delete(r.byPair, key)
		}
	}
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*chat.Message
}

func newFakeMessageRepo(messages ...*chat.Message) *fakeMessageRepo {
	r := &fakeMessageRepo{}
	r.messages = append(r.messages, messages...)
	return r
}

func (r *fakeMessageRepo) Create(_ context.Context, m *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *m
	copied.ReadBy = append([]string(nil), m.ReadBy...)
	r.messages = append(r.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id string) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, chat.ErrMessageNotFound
}

func (r *fakeMessageRepo) ListByConversation(_ context.Context, conversationID string, limit int, before time.Time) ([]*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, messageIDs []string, identity string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated []string
	for _, id := range messageIDs {
		for _, m := range r.messages {
			if m.ID == id && m.MarkReadBy(identity) {
				updated = append(updated, id)
			}
		}
	}
	return updated, nil
}

func (r *fakeMessageRepo) CountUnread(_ context.Context, conversationID, identity string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.SenderID != identity && !m.IsReadBy(identity) {
			count++
		}
	}
	return count, nil
}

// seqIDs hands out deterministic identifiers.
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) GenerateID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

// capturingBus records every published event.
type capturingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *capturingBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *capturingBus) types() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shared.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}

func testStudent(id string) *student.Student {
	s, err := student.NewStudent(student.NewStudentParams{
		ID:              id,
		RegNumber:       "REG2026001",
		Name:            "Asha Verma",
		Email:           "asha@college-hub.local",
		CurrentSemester: 4,
	})
	if err != nil {
		panic(err)
	}
	return s
}

func testBook(id string, copies int) *library.Book {
	b, err := library.NewBook(library.NewBookParams{
		ID:          id,
		Title:       "Computer Networks",
		Author:      "Tanenbaum",
		ISBN:        "978-0132126953",
		Department:  library.DeptCSE,
		TotalCopies: copies,
		Price:       600.0,
	})
	if err != nil {
		panic(err)
	}
	return b
}
