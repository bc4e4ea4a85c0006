package delivery

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"event_messaging_backend/platform/config"
)

// EmailSender delivers over SMTP via go-mail.
type EmailSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewEmailSender(cfg config.DeliveryConfig) *EmailSender {
	if !cfg.IsEmailEnabled() {
		return nil
	}

	return &EmailSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *EmailSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if s == nil {
		return Receipt{}, fmt.Errorf("smtp not configured")
	}

	m := gomail.NewMsg()
	if err := m.FromFormat(s.fromName, s.fromEmail); err != nil {
		return Receipt{}, fmt.Errorf("smtp from: %w", err)
	}
	if err := m.To(msg.Email); err != nil {
		return Receipt{}, fmt.Errorf("smtp to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return Receipt{}, fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return Receipt{}, Transient(fmt.Errorf("smtp send: %w", err))
	}

	return Receipt{ProviderID: m.GetMessageID()}, nil
}
