package alert

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"SmartEnergy/internal/domain/models"
)

// ErrNoRecipient is returned by a channel when the contact has no address it can use.
var ErrNoRecipient = errors.New("no recipient for channel")

// Channel delivers one alert over one medium.
type Channel interface {
	Name() string
	Notify(ctx context.Context, a models.Alert) error
}

func formatPower(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func emailBody(a models.Alert) string {
	return fmt.Sprintf("Anomaly Detected!\nReason: %s\nPower: %sW", a.Reason, formatPower(a.Power))
}

func smsBody(a models.Alert) string {
	return fmt.Sprintf("⚠️ Energy Alert: %s | Power: %sW", a.Reason, formatPower(a.Power))
}
