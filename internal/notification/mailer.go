package notification

import (
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer sends a plain text email.
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether enough is set to reach a server.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port > 0 && c.From != ""
}

type smtpMailer struct {
	from   string
	dialer *gomail.Dialer
}

// NewMailer returns an SMTP mailer, or nil when cfg is not enabled.
func NewMailer(cfg SMTPConfig) Mailer {
	if !cfg.Enabled() {
		return nil
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
	}
	return &smtpMailer{from: cfg.From, dialer: dialer}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s failed: %w", to, err)
	}
	return nil
}
