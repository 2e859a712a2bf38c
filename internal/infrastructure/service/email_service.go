package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"sort"
	"strings"

	"github.com/campus-hub/college-hub/internal/domain/student"
	"github.com/campus-hub/college-hub/pkg/circuitbreaker"
	"github.com/campus-hub/college-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// EMAIL NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// SMTPConfig holds mail relay configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the sender address on outgoing mail.
	From string
}

// Addr returns the relay address in "host:port" format.
func (c SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Sender delivers a single mail. Satisfied by smtp.SendMail; swapped for a
// fake in tests.
type Sender func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier implements eventhandler.Notifier by email. Deliveries go
// through a retrier and a circuit breaker: a struggling relay is retried with
// backoff, a dead one is given quiet time instead of a hammering.
type EmailNotifier struct {
	config   SMTPConfig
	students student.Repository
	send     Sender
	retrier  *retry.Retrier
	breaker  *circuitbreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewEmailNotifier creates a new EmailNotifier. A nil sender uses
// smtp.SendMail.
func NewEmailNotifier(config SMTPConfig, students student.Repository, sender Sender, logger *slog.Logger) *EmailNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if sender == nil {
		sender = smtp.SendMail
	}

	logger = logger.With("component", "email_notifier")

	return &EmailNotifier{
		config:   config,
		students: students,
		send:     sender,
		retrier:  retry.SMTPRetrier(),
		breaker: circuitbreaker.MailBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("mail relay circuit state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		}),
		logger: logger,
	}
}

// Notify resolves the recipient's email address and delivers one message for
// the given notification kind.
func (n *EmailNotifier) Notify(ctx context.Context, recipientID, kind string, payload map[string]interface{}) error {
	s, err := n.students.GetByID(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("notify %s: recipient lookup failed: %w", kind, err)
	}

	subject, body := renderNotification(kind, s.Name, payload)
	msg := buildMessage(n.config.From, s.Email, subject, body)

	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	err = n.breaker.Execute(ctx, func(ctx context.Context) error {
		return n.retrier.Do(ctx, func(ctx context.Context) error {
			if err := n.send(n.config.Addr(), auth, n.config.From, []string{s.Email}, msg); err != nil {
				return retry.Retryable(err)
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("notify %s: delivery failed: %w", kind, err)
	}

	n.logger.Info("notification delivered",
		"kind", kind,
		"recipient_id", recipientID,
	)

	return nil
}

// renderNotification produces subject and body for a notification kind. The
// payload keys come from the event handlers and jobs that call Notify.
func renderNotification(kind, name string, payload map[string]interface{}) (subject, body string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", name)

	switch kind {
	case "book_borrowed":
		subject = "Library: book issued"
		fmt.Fprintf(&b, "A book has been issued to your account. It is due on %v.\n", payload["due_date"])
	case "loan_overdue":
		subject = "Library: loan overdue"
		b.WriteString("A book on your account is past its due date. Fines accrue daily until it is returned.\n")
	case "overdue_reminder":
		subject = "Library: overdue reminder"
		fmt.Fprintf(&b, "You have %v overdue book(s). Please return them to stop further fines.\n", payload["overdue_count"])
	case "noc_issued":
		subject = "Library: NOC issued"
		b.WriteString("Your library No-Objection Certificate has been issued.\n")
	default:
		subject = "Library: notification"
		keys := make([]string, 0, len(payload))
		for k := range payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %v\n", k, payload[k])
		}
	}

	b.WriteString("\nCollege Hub Library\n")
	return subject, b.String()
}

// buildMessage assembles an RFC 5322 message.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
