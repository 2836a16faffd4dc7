// Package notify emails staff when a contact form submission arrives.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/dsautocare/site/internal/config"
	"github.com/dsautocare/site/internal/submission"
)

// Notification is one outgoing staff email.
type Notification struct {
	Subject    string
	Body       string
	Attachment string // path of a file to attach verbatim; skipped if missing
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NopNotifier logs instead of sending. Used when SMTP is not configured.
type NopNotifier struct{}

// Notify logs the subject.
func (NopNotifier) Notify(_ context.Context, n Notification) error {
	slog.Info("smtp not configured, notification not sent", "subject", n.Subject)
	return nil
}

// sender is the part of *mail.Client used to deliver messages.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier sends mail over SMTP with mandatory STARTTLS and PLAIN auth.
type SMTPNotifier struct {
	from   string
	to     string
	client sender
}

// NewSMTP builds a notifier from the SMTP settings in cfg.
func NewSMTP(cfg *config.Config) (*SMTPNotifier, error) {
	client, err := mail.NewClient(cfg.SMTPServer,
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.EmailUser),
		mail.WithPassword(cfg.EmailPass),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPNotifier{from: cfg.EmailUser, to: cfg.Recipient(), client: client}, nil
}

// New returns an SMTPNotifier when SMTP is configured and a NopNotifier otherwise.
func New(cfg *config.Config) (Notifier, error) {
	if !cfg.SMTPEnabled() {
		return NopNotifier{}, nil
	}
	return NewSMTP(cfg)
}

// Notify sends n.
func (s *SMTPNotifier) Notify(ctx context.Context, n Notification) error {
	msg, err := s.message(n)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func (s *SMTPNotifier) message(n Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(s.to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(n.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, n.Body)

	if n.Attachment != "" {
		if _, err := os.Stat(n.Attachment); err == nil {
			msg.AttachFile(n.Attachment, mail.WithFileName(filepath.Base(n.Attachment)))
		} else {
			slog.Warn("notification sent without attachment", "error", err)
		}
	}
	return msg, nil
}

// ForSubmission builds the staff notification for a new submission.
func ForSubmission(s submission.Submission, attachment string) Notification {
	subject := "New Contact Form Submission"
	if s.Name != "" {
		subject += " from " + s.Name
	}
	return Notification{
		Subject:    subject,
		Body:       Body(s),
		Attachment: attachment,
	}
}

// Body renders each field as "Label: value", in column order.
func Body(s submission.Submission) string {
	var b strings.Builder
	b.WriteString("A new inquiry was submitted through the website.\n\n")
	values := s.Values()
	for i, label := range submission.Header {
		if label == "id" {
			label = "ID"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, values[i])
	}
	return b.String()
}
