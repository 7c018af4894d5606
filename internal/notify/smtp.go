package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"

	"github.com/nicx17/hytrack/internal/config"
)

// Mailer sends notification mail to the configured recipient over SMTP with
// STARTTLS. One Send is one message; there is no queueing or retry, a failed
// send is the caller's problem to log.
type Mailer struct {
	cfg config.SMTP
	log zerolog.Logger
}

func NewMailer(cfg config.SMTP, log zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log.With().Str("component", "notify").Logger()}
}

func (m *Mailer) Send(ctx context.Context, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = []string{m.cfg.Recipient}
	e.Subject = subject
	e.HTML = []byte(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.cfg.Server, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Server)
	if err := e.SendWithStartTLS(addr, auth, &tls.Config{ServerName: m.cfg.Server}); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.log.Info().Str("subject", subject).Str("to", m.cfg.Recipient).Msg("notification sent")
	return nil
}
