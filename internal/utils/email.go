package utils

import (
	"context"
	"fmt"
	"log"

	"github.com/wneessen/go-mail"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg SMTPConfig
}

// NewMailer returns a mailer that only logs when SMTP is not configured.
func NewMailer(cfg SMTPConfig) Mailer {
	if cfg.Host == "" {
		log.Println("⚠️ SMTP_HOST not set, emails are logged instead of sent")
		return LogMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	log.Println("📤 Sending email to", to)
	return client.DialAndSendWithContext(ctx, msg)
}

type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("📧 [mail disabled] %s → %s", subject, to)
	return nil
}

// SendAsync delivers in the background; failures are only logged.
func SendAsync(m Mailer, to, subject, htmlBody string) {
	go func() {
		if err := m.Send(context.Background(), to, subject, htmlBody); err != nil {
			log.Printf("❌ Email to %s failed: %v", to, err)
			return
		}
		log.Printf("📧 Email sent: %s → %s", subject, to)
	}()
}
