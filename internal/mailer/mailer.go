package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/example/adminauth/internal/config"
	"github.com/example/adminauth/internal/logging"
)

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	from   string
	dialer *gomail.Dialer
}

// NewSMTPSender constructs an SMTPSender from configuration.
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		from:   cfg.MailFrom,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := buildMessage(s.from, to, subject, htmlBody)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	return m
}

// LogSender writes messages to the log instead of delivering them.
// Used when SMTP is not configured.
type LogSender struct {
	log logging.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.log.Warn(ctx, "smtp not configured, mail not delivered", "to", to, "subject", subject, "body", htmlBody)
	return nil
}

// New picks the SMTP sender when configured, otherwise the log sender.
func New(cfg *config.Config, log logging.Logger) Sender {
	if cfg.MailEnabled() {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(log)
}
