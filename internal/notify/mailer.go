// Package notify tells students about changes to their credential requests.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/MrJamesThe3rd/registrar/internal/account"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

//go:generate mockgen -source=mailer.go -destination=mailer_mock.go -package=notify
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

type Sender interface {
	Send(ctx context.Context, msg *sgmail.SGMailV3) error
}

type Mailer struct {
	accounts Directory
	sender   Sender
	from     *sgmail.Email
}

func NewMailer(accounts Directory, sender Sender, fromName, fromEmail string) *Mailer {
	return &Mailer{
		accounts: accounts,
		sender:   sender,
		from:     sgmail.NewEmail(fromName, fromEmail),
	}
}

// Notify emails the requesting student. Submissions are not mailed.
func (m *Mailer) Notify(ctx context.Context, e transaction.Event) error {
	subject, body := compose(e)
	if subject == "" {
		return nil
	}

	student, err := m.accounts.Get(ctx, e.StudentID)
	if err != nil {
		return fmt.Errorf("looking up student: %w", err)
	}

	msg := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail(student.Name, student.Email), body, "")

	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailing %s: %w", student.Email, err)
	}

	return nil
}

func compose(e transaction.Event) (string, string) {
	ref := strings.ToUpper(e.TransactionID.String()[:8])

	var b strings.Builder

	switch e.To {
	case transaction.StatusScheduled:
		fmt.Fprintf(&b, "Your request %s has been scheduled for processing.\n", ref)
	case transaction.StatusReady:
		fmt.Fprintf(&b, "Your request %s is ready for pickup at the registrar's window.\n", ref)
	case transaction.StatusClaimed:
		fmt.Fprintf(&b, "Your request %s has been released.\n", ref)
	case transaction.StatusRejected:
		fmt.Fprintf(&b, "Your request %s was rejected.\n", ref)
	case transaction.StatusSubmitted:
		return "", ""
	}

	if e.Remarks != "" {
		fmt.Fprintf(&b, "\nRemarks: %s\n", e.Remarks)
	}

	return fmt.Sprintf("Request %s: %s", ref, e.To), b.String()
}

// SendGrid delivers through the SendGrid v3 API.
type SendGrid struct {
	client *sendgrid.Client
}

func NewSendGrid(apiKey string) *SendGrid {
	return &SendGrid{client: sendgrid.NewSendClient(apiKey)}
}

func (s *SendGrid) Send(ctx context.Context, m *sgmail.SGMailV3) error {
	res, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return err
	}

	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", res.StatusCode, res.Body)
	}

	return nil
}

// LogSender only logs what would have been sent.
type LogSender struct{}

func (LogSender) Send(_ context.Context, m *sgmail.SGMailV3) error {
	var to []string

	for _, p := range m.Personalizations {
		for _, addr := range p.To {
			to = append(to, addr.Address)
		}
	}

	slog.Info("email not sent, no sendgrid key configured", "to", to, "subject", m.Subject)

	return nil
}

// Fanout hands each event to every notifier and joins their errors.
type Fanout []transaction.Notifier

func (f Fanout) Notify(ctx context.Context, e transaction.Event) error {
	var errs []error

	for _, n := range f {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
