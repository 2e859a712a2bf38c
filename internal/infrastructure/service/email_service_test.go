package service

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/college-hub/internal/domain/student"
)

type singleStudentRepo struct {
	student *student.Student
}

func (r *singleStudentRepo) Create(context.Context, *student.Student) error { return nil }
func (r *singleStudentRepo) Update(context.Context, *student.Student) error { return nil }

func (r *singleStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	if r.student == nil || r.student.ID != id {
		return nil, student.ErrStudentNotFound
	}
	return r.student, nil
}

func (r *singleStudentRepo) GetByRegNumber(context.Context, student.RegNumber) (*student.Student, error) {
	return nil, student.ErrStudentNotFound
}

func (r *singleStudentRepo) ListByNOCStatus(context.Context, student.NOCStatus, int, int) ([]*student.Student, error) {
	return nil, nil
}

func notifierStudent() *student.Student {
	s, err := student.NewStudent(student.NewStudentParams{
		ID:              "student-1",
		RegNumber:       "REG2026007",
		Name:            "Asha Pillai",
		Email:           "asha@college-hub.local",
		CurrentSemester: 5,
	})
	if err != nil {
		panic(err)
	}
	return s
}

func testConfig() SMTPConfig {
	return SMTPConfig{Host: "mail.local", Port: 587, From: "library@college-hub.local"}
}

func TestEmailNotifier_DeliversMail(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	sender := func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	n := NewEmailNotifier(testConfig(), &singleStudentRepo{student: notifierStudent()}, sender, nil)
	err := n.Notify(context.Background(), "student-1", "noc_issued", nil)

	require.NoError(t, err)
	assert.Equal(t, "mail.local:587", gotAddr)
	assert.Equal(t, "library@college-hub.local", gotFrom)
	assert.Equal(t, []string{"asha@college-hub.local"}, gotTo)

	body := string(gotMsg)
	assert.Contains(t, body, "Subject: Library: NOC issued")
	assert.Contains(t, body, "Dear Asha Pillai,")
	assert.Contains(t, body, "No-Objection Certificate has been issued")
}

func TestEmailNotifier_RetriesTransientFailure(t *testing.T) {
	attempts := 0
	sender := func(string, smtp.Auth, string, []string, []byte) error {
		attempts++
		if attempts == 1 {
			return errors.New("450 mailbox busy")
		}
		return nil
	}

	n := NewEmailNotifier(testConfig(), &singleStudentRepo{student: notifierStudent()}, sender, nil)
	err := n.Notify(context.Background(), "student-1", "loan_overdue", nil)

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestEmailNotifier_UnknownRecipient(t *testing.T) {
	sender := func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("sender must not be called")
		return nil
	}

	n := NewEmailNotifier(testConfig(), &singleStudentRepo{}, sender, nil)
	err := n.Notify(context.Background(), "ghost", "loan_overdue", nil)

	assert.ErrorIs(t, err, student.ErrStudentNotFound)
}

func TestRenderNotification_UnknownKindListsPayload(t *testing.T) {
	subject, body := renderNotification("custom_kind", "Asha", map[string]interface{}{
		"b_key": 2,
		"a_key": 1,
	})

	assert.Equal(t, "Library: notification", subject)

	// Payload keys render in stable sorted order.
	aIdx := strings.Index(body, "a_key: 1")
	bIdx := strings.Index(body, "b_key: 2")
	require.GreaterOrEqual(t, aIdx, 0)
	require.GreaterOrEqual(t, bIdx, 0)
	assert.Less(t, aIdx, bIdx)
}

func TestBuildMessage_CRLFHeaders(t *testing.T) {
	msg := string(buildMessage("from@x", "to@y", "Hello", "line one\nline two\n"))

	assert.True(t, strings.HasPrefix(msg, "From: from@x\r\n"))
	assert.Contains(t, msg, "To: to@y\r\n")
	assert.Contains(t, msg, "Subject: Hello\r\n")
	assert.Contains(t, msg, "\r\n\r\nline one\r\nline two\r\n")
}
