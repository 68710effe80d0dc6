package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"telemed-appointment-api/config"
	"telemed-appointment-api/internal/service"
)

type smtpMailer struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
}

// NewSMTPMailer builds the outbound email capability from SMTP settings.
func NewSMTPMailer(cfg config.SMTPConfig) service.Mailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &smtpMailer{cfg: cfg, auth: auth}
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.cfg.From, to, subject, body)

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	if err := smtp.SendMail(addr, m.auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	return nil
}
