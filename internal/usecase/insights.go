package usecase

import (
	"context"
	"time"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	domsvc "SmartEnergy/internal/domain/service"
	svcmetrics "SmartEnergy/internal/service/metrics"
	"SmartEnergy/internal/services/meter"
	applogger "SmartEnergy/pkg/logger"
)

// ScoreListener is told when a user's stored eco score changes.
type ScoreListener interface {
	ScoreChanged(ctx context.Context, userID string, score int)
}

// InsightsUseCase serves analytics over a snapshot of the shared window.
type InsightsUseCase struct {
	window   *meter.Window
	analyzer domsvc.Analyzer
	users    drepo.UserStore
	listener ScoreListener
	logger   *applogger.Logger
}

// NewInsightsUseCase creates a new InsightsUseCase.
func NewInsightsUseCase(window *meter.Window, analyzer domsvc.Analyzer, users drepo.UserStore, listener ScoreListener, l *applogger.Logger) *InsightsUseCase {
	return &InsightsUseCase{window: window, analyzer: analyzer, users: users, listener: listener, logger: l}
}

func (u *InsightsUseCase) Predict(_ context.Context) models.Prediction {
	start := time.Now()
	snap := u.window.Snapshot()
	defer svcmetrics.ObserveInsight("predict", len(snap), start)
	return u.analyzer.Predict(snap)
}

// EcoScore computes the score and, for an authenticated caller with enough
// data, stores it on the caller for the leaderboard. Storage failures are logged only.
func (u *InsightsUseCase) EcoScore(ctx context.Context, userID string) models.EcoScore {
	start := time.Now()
	snap := u.window.Snapshot()
	score := u.analyzer.EcoScore(snap)
	svcmetrics.ObserveInsight("ecoscore", len(snap), start)

	if userID == "" || !score.Sufficient {
		return score
	}
	if err := u.users.UpdateEcoScore(ctx, userID, score.Score); err != nil {
		u.logger.Warn("store eco score", applogger.String("user_id", userID), applogger.Error(err))
		return score
	}
	if u.listener != nil {
		u.listener.ScoreChanged(ctx, userID, score.Score)
	}
	return score
}

func (u *InsightsUseCase) Recommendations(_ context.Context) []string {
	start := time.Now()
	snap := u.window.Snapshot()
	defer svcmetrics.ObserveInsight("recommendations", len(snap), start)
	return u.analyzer.Recommend(snap)
}

func (u *InsightsUseCase) Summary(_ context.Context) models.DerivedMetrics {
	start := time.Now()
	snap := u.window.Snapshot()
	defer svcmetrics.ObserveInsight("summary", len(snap), start)
	return u.analyzer.Summary(snap)
}
