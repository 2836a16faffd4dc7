package ops

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dsautocare/site/internal/captcha"
	"github.com/dsautocare/site/internal/errors"
	"github.com/dsautocare/site/internal/notify"
	"github.com/dsautocare/site/internal/store"
	"github.com/dsautocare/site/internal/submission"
)

// SubmitDeps are the collaborators of Submit. Nil Verifier and Notifier
// disable verification and notification.
type SubmitDeps struct {
	Store    store.Store
	Verifier captcha.Verifier
	Notifier notify.Notifier
}

// SubmitInput contains parameters for the Submit operation.
type SubmitInput struct {
	Fields       submission.Fields
	CaptchaToken string
	RemoteIP     string
}

// SubmitOutput contains the result of the Submit operation.
type SubmitOutput struct {
	Submission *submission.Submission `json:"submission"`
	Notified   bool                   `json:"notified"`
	Warning    string                 `json:"warning,omitempty"`
}

// Submit verifies, validates and records a contact form submission, then emails staff.
// Verification and validation failures persist nothing. A storage failure is
// reported as a warning and the notification is still sent.
func Submit(ctx context.Context, deps SubmitDeps, input SubmitInput) (*SubmitOutput, error) {
	if deps.Verifier != nil {
		if err := deps.Verifier.Verify(ctx, input.CaptchaToken, input.RemoteIP); err != nil {
			slog.Info("contact form rejected", "op", "submit", "reason", "verification", "error", err)
			return nil, err
		}
	}

	var missing []string
	if strings.TrimSpace(input.Fields.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(input.Fields.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return nil, errors.NewValidation(missing...)
	}

	out := &SubmitOutput{}
	rec, err := deps.Store.Append(ctx, input.Fields)
	if err != nil {
		if rec == nil {
			return nil, err
		}
		slog.Warn("submission not saved", "op", "submit", "id", rec.ID, "error", err)
		out.Warning = "Your message was sent, but we could not save a copy of it."
	}
	out.Submission = rec

	if deps.Notifier != nil {
		n := notify.ForSubmission(*rec, deps.Store.Path())
		if err := deps.Notifier.Notify(ctx, n); err != nil {
			slog.Error("notification failed", "op", "submit", "id", rec.ID, "error", err)
		} else {
			out.Notified = true
		}
	}

	return out, nil
}
