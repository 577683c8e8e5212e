// Package email delivers transactional mail through SMTP, Amazon SES, or the log in development.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"utvibe/internal/config"
)

// Message is a single outgoing email with HTML and plain text bodies.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the mailer selected by MAIL_DRIVER.
func New(ctx context.Context, cfg *config.Config) (Mailer, error) {
	switch cfg.MailDriver {
	case "smtp":
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom), nil
	case "ses":
		return NewSESMailer(ctx, cfg.AWSRegion, cfg.MailFrom)
	case "log", "":
		return LogMailer{Logger: slog.Default()}, nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.MailDriver)
	}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

func (l LogMailer) Send(ctx context.Context, msg Message) error {
	l.Logger.InfoContext(ctx, "email (log driver)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	return nil
}
