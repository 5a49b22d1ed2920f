package usecase

import (
	"context"

	"SmartEnergy/internal/domain/models"
	domsvc "SmartEnergy/internal/domain/service"
)

const MsgDemoAlertSent = "Demo alert sent!"

type AlertUseCase struct {
	alerts domsvc.AlertDispatcher
}

// NewAlertUseCase creates a new AlertUseCase.
func NewAlertUseCase(alerts domsvc.AlertDispatcher) *AlertUseCase {
	return &AlertUseCase{alerts: alerts}
}

// Trigger queues the demo alert. The response does not wait for delivery.
func (u *AlertUseCase) Trigger(_ context.Context) bool {
	return u.alerts.Dispatch(models.DemoAlertReason, models.DemoAlertPower)
}
