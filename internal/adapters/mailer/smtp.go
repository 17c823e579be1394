package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

// SMTP delivers mail through a relay with mandatory STARTTLS.
type SMTP struct {
	host string
	from string
	d    *mail.Dialer
}

func NewSMTP(host string, port int, user, pass, from string) (*SMTP, error) {
	if host == "" || from == "" {
		return nil, fmt.Errorf("smtp not configured (SMTP_HOST/MAIL_FROM)")
	}
	if port == 0 {
		port = 587
	}
	d := mail.NewDialer(host, port, user, pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{ServerName: host}
	return &SMTP{host: host, from: from, d: d}, nil
}

func (s *SMTP) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	if m.Text != "" {
		msg.SetBody("text/plain", m.Text)
		msg.AddAlternative("text/html", m.HTML)
	} else {
		msg.SetBody("text/html", m.HTML)
	}
	if err := s.d.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp %s: %w", s.host, err)
	}
	return nil
}
