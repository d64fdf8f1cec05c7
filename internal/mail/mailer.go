package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/sociallink/backend/pkg/config"
	"github.com/sociallink/backend/pkg/logging"
)

// Sender delivers messages. gomail.Dialer implements it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends HTML emails through SMTP
type Mailer struct {
	sender Sender
	from   string
	name   string
	logger *zap.Logger
}

// NewMailer creates a mailer from cfg. Without an SMTP host the mailer only logs
// the messages it would have sent.
func NewMailer(cfg *config.MailConfig) *Mailer {
	var sender Sender
	if cfg.SMTPHost != "" {
		sender = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return NewMailerWithSender(sender, cfg.FromEmail, cfg.FromName)
}

// NewMailerWithSender creates a mailer on an existing sender
func NewMailerWithSender(sender Sender, from, name string) *Mailer {
	return &Mailer{
		sender: sender,
		from:   from,
		name:   name,
		logger: logging.WithComponent("mail"),
	}
}

// Send delivers an HTML email to one receiver
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.sender == nil {
		m.logger.Info("SMTP not configured, email not sent",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.name)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	m.logger.Info("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
