package alert

import (
	"context"
	"fmt"

	"SmartEnergy/internal/domain/models"
	xutil "SmartEnergy/pkg/util"

	"gopkg.in/gomail.v2"
)

const EmailSubject = "⚠️ Energy Usage Alert"

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailChannel sends alerts over SMTP.
type EmailChannel struct {
	sender mailSender
	from   string
}

// NewEmailChannel creates an SMTP channel; from defaults to user.
func NewEmailChannel(host string, port int, user, password, from string) *EmailChannel {
	if from == "" {
		from = user
	}
	return &EmailChannel{
		sender: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Notify(ctx context.Context, a models.Alert) error {
	if a.Contact.Email == "" {
		return ErrNoRecipient
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", c.from, "Smart Energy Monitor")
	m.SetHeader("To", a.Contact.Email)
	m.SetHeader("Subject", EmailSubject)
	m.SetBody("text/plain", emailBody(a))

	// gomail has no context support; honour cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", xutil.MaskContact(a.Contact.Email), err)
	}
	return nil
}
