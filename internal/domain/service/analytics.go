package service

import (
	"context"

	"SmartEnergy/internal/domain/models"
)

// Analyzer derives insights from a window snapshot. Implementations are pure.
type Analyzer interface {
	Classify(window []models.Reading) models.Verdict
	Predict(window []models.Reading) models.Prediction
	EcoScore(window []models.Reading) models.EcoScore
	Recommend(window []models.Reading) []string
	Summary(window []models.Reading) models.DerivedMetrics
}

// AlertDispatcher accepts anomaly notifications without blocking the caller.
// Dispatch reports whether the alert was queued.
type AlertDispatcher interface {
	Dispatch(reason string, power float64) bool
}

// ContactResolver finds who should receive alerts.
type ContactResolver interface {
	Resolve(ctx context.Context) (models.Contact, error)
}
