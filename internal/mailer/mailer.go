package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"
	"github.com/pongarena/backend/internal/config"
)

// Mailer sends mail over SMTP. Send blocks until the message is accepted by
// the server or the context expires; failures are always surfaced.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func New(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
	}
}

func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	mail := mailyak.New(fmt.Sprintf("%s:%d", m.host, m.port),
		smtp.PlainAuth("", m.username, m.password, m.host))

	mail.To(to)
	mail.From(m.from)
	mail.Subject(subject)
	mail.Plain().Set(body)

	// mailyak has no context support; run the send in a goroutine so the
	// caller's deadline still bounds the request.
	done := make(chan error, 1)
	go func() {
		done <- mail.Send()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send mail: %w", err)
		}
	}

	slog.Info("mail sent", "to", to, "subject", subject)
	return nil
}
