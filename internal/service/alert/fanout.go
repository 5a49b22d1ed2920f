package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SmartEnergy/internal/domain/models"
	domrepo "SmartEnergy/internal/domain/repository"
	applogger "SmartEnergy/pkg/logger"
)

// Fanout delivers an alert to every configured channel, each under its own timeout.
type Fanout struct {
	channels []Channel
	timeout  time.Duration
	metrics  domrepo.Metrics
	logger   *applogger.Logger
}

// NewFanout creates a sink delivering to every channel.
func NewFanout(l *applogger.Logger, m domrepo.Metrics, timeout time.Duration, channels ...Channel) *Fanout {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fanout{channels: channels, timeout: timeout, metrics: m, logger: l}
}

func (f *Fanout) Channels() []string {
	names := make([]string, len(f.channels))
	for i, ch := range f.channels {
		names[i] = ch.Name()
	}
	return names
}

// Deliver returns an error only when no channel accepted the alert.
func (f *Fanout) Deliver(ctx context.Context, a models.Alert) error {
	if len(f.channels) == 0 {
		return nil
	}

	var (
		sent int
		errs []error
	)
	for _, ch := range f.channels {
		err := f.notify(ctx, ch, a)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrNoRecipient):
			f.logger.Debug("alert channel skipped", applogger.String("channel", ch.Name()), applogger.String("alert_id", a.ID))
		default:
			errs = append(errs, err)
		}
	}

	if sent == 0 && len(errs) > 0 {
		return fmt.Errorf("deliver alert %s: %w", a.ID, errors.Join(errs...))
	}
	return nil
}

func (f *Fanout) notify(ctx context.Context, ch Channel, a models.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	err := ch.Notify(ctx, a)
	if errors.Is(err, ErrNoRecipient) {
		return err
	}

	f.metrics.RecordLatency("alert_"+ch.Name(), time.Since(start).Seconds())
	f.metrics.RecordAlert(ch.Name(), err == nil)
	if err != nil {
		f.logger.Error("alert delivery failed",
			applogger.String("channel", ch.Name()),
			applogger.String("alert_id", a.ID),
			applogger.Error(err))
		return err
	}
	f.logger.Info("alert delivered",
		applogger.String("channel", ch.Name()),
		applogger.String("alert_id", a.ID))
	return nil
}
