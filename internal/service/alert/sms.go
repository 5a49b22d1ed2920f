package alert

import (
	"context"
	"fmt"
	"strings"

	"SmartEnergy/internal/domain/models"
	xhttp "SmartEnergy/pkg/http"
	xutil "SmartEnergy/pkg/util"
)

// SMSChannel sends alerts through the Twilio Messages API.
type SMSChannel struct {
	client     *xhttp.Client
	baseURL    string
	accountSID string
	authToken  string
	from       string
}

// NewSMSChannel creates a Twilio channel.
func NewSMSChannel(client *xhttp.Client, baseURL, accountSID, authToken, from string) *SMSChannel {
	return &SMSChannel{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
	}
}

func (c *SMSChannel) Name() string { return "sms" }

type smsResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

func (c *SMSChannel) Notify(ctx context.Context, a models.Alert) error {
	if a.Contact.Phone == "" {
		return ErrNoRecipient
	}

	var resp smsResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID),
		Headers: map[string]string{"Content-Type": xhttp.ContentTypeForm},
		Auth:    &xhttp.BasicAuth{Username: c.accountSID, Password: c.authToken},
		Body: map[string]string{
			"To":   a.Contact.Phone,
			"From": c.from,
			"Body": smsBody(a),
		},
	}, &resp)
	if err != nil {
		return fmt.Errorf("send sms to %s: %w", xutil.MaskContact(a.Contact.Phone), err)
	}
	return nil
}
