package usecase

import (
	"context"
	"time"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	domsvc "SmartEnergy/internal/domain/service"
	mid "SmartEnergy/internal/middleware"
	"SmartEnergy/internal/services/meter"
	applogger "SmartEnergy/pkg/logger"
	xutil "SmartEnergy/pkg/util"
)

// Archiver receives every recorded reading for long-term storage.
type Archiver interface {
	Enqueue(r models.ArchivedReading) bool
}

type nopArchiver struct{}

func (nopArchiver) Enqueue(models.ArchivedReading) bool { return false }

// MeterUseCase records readings into the shared window and classifies them.
type MeterUseCase struct {
	window    *meter.Window
	sim       *meter.Simulator
	analyzer  domsvc.Analyzer
	alerts    domsvc.AlertDispatcher
	archive   Archiver
	metrics   drepo.Metrics
	logger    *applogger.Logger
	subWindow int
	layout    string
	meterID   string
	now       func() time.Time
}

type MeterOption func(*MeterUseCase)

// WithArchiver archives every accepted reading.
func WithArchiver(a Archiver) MeterOption {
	return func(u *MeterUseCase) {
		if a != nil {
			u.archive = a
		}
	}
}

// WithSubWindow sets how many trailing readings the classifier sees.
func WithSubWindow(n int) MeterOption {
	return func(u *MeterUseCase) {
		if n > 0 {
			u.subWindow = n
		}
	}
}

func WithTimeLayout(layout string) MeterOption {
	return func(u *MeterUseCase) {
		if layout != "" {
			u.layout = layout
		}
	}
}

// WithDefaultMeter names readings that arrive without a meter id.
func WithDefaultMeter(id string) MeterOption {
	return func(u *MeterUseCase) {
		if id != "" {
			u.meterID = id
		}
	}
}

// NewMeterUseCase creates a new MeterUseCase.
func NewMeterUseCase(
	window *meter.Window,
	sim *meter.Simulator,
	analyzer domsvc.Analyzer,
	alerts domsvc.AlertDispatcher,
	metrics drepo.Metrics,
	l *applogger.Logger,
	opts ...MeterOption,
) *MeterUseCase {
	u := &MeterUseCase{
		window:    window,
		sim:       sim,
		analyzer:  analyzer,
		alerts:    alerts,
		archive:   nopArchiver{},
		metrics:   metrics,
		logger:    l,
		subWindow: 20,
		layout:    xutil.ClockLayout,
		meterID:   "default",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Live samples the simulated meter and records the sample.
func (u *MeterUseCase) Live(ctx context.Context) (models.LiveReading, error) {
	return u.Ingest(ctx, models.SourceLive, u.sim.Next())
}

// Ingest records r, classifies it against the readings before it and queues an
// alert when it is anomalous. Alerting never delays or changes the result.
func (u *MeterUseCase) Ingest(ctx context.Context, source string, r models.Reading) (models.LiveReading, error) {
	start := u.now()
	if r.Time == "" {
		r.Time = xutil.ClockLabel(start, u.layout)
	}
	if r.Meter == "" {
		r.Meter = u.meterID
	}

	r, recent, err := u.window.RecordAndRecent(r, u.subWindow)
	if err != nil {
		u.metrics.RecordError("invalid_reading")
		return models.LiveReading{}, err
	}

	v := u.analyzer.Classify(recent)
	u.metrics.RecordReading(source, r.Power, u.window.Len())
	if v.IsAnomaly {
		u.metrics.RecordAnomaly(v.Reason)
		if !u.alerts.Dispatch(v.Reason, r.Power) {
			u.logger.Warn("anomaly alert not queued",
				applogger.String("reason", v.Reason),
				applogger.Float64("power", r.Power))
		}
	}

	u.archive.Enqueue(models.ArchivedReading{
		RecordedAt: start,
		Meter:      r.Meter,
		Source:     source,
		Label:      r.Time,
		Power:      r.Power,
		Anomaly:    v.IsAnomaly,
		Reason:     v.Reason,
	})
	u.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	return models.NewLiveReading(r, v), nil
}

// Recent returns up to n of the newest readings, oldest first.
func (u *MeterUseCase) Recent(n int) []models.Reading {
	return u.window.Recent(n)
}

// Processor adapts Ingest to the ingest pipeline for readings from source.
func (u *MeterUseCase) Processor(source string) mid.Proc {
	return mid.ProcFunc(func(ctx context.Context, r *models.Reading) error {
		_, err := u.Ingest(ctx, source, *r)
		return err
	})
}
