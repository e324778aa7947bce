package channel

import (
	"context"
	"fmt"
	"net/mail"

	"gopkg.in/gomail.v2"

	"hemolink/internal/notification"
	dErrors "hemolink/pkg/domain-errors"
)

// mailSender is the part of *gomail.Dialer the channel needs.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPChannel delivers notifications by email. Recipients without a valid
// address fail with CodeInvalidInput before any network call.
type SMTPChannel struct {
	sender mailSender
	from   string
}

func NewSMTP(cfg SMTPConfig) (*SMTPChannel, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("smtp from address: %w", err)
	}
	return &SMTPChannel{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}, nil
}

func (c *SMTPChannel) Name() string { return "smtp" }

// Send blocks until the relay accepts the message or ctx is done. gomail has
// no context support, so a cancelled send may still complete in the
// background.
func (c *SMTPChannel) Send(ctx context.Context, env notification.Envelope) error {
	if _, err := mail.ParseAddress(env.Recipient.Email); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid recipient email")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetAddressHeader("To", env.Recipient.Email, env.Recipient.Name)
	m.SetHeader("Subject", env.Subject)
	m.SetHeader("X-Hemolink-Request", env.RequestID.String())
	m.SetBody("text/plain", env.Message)

	done := make(chan error, 1)
	go func() {
		done <- c.sender.DialAndSend(m)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
