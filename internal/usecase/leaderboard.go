package usecase

import (
	"context"
	"time"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	"SmartEnergy/pkg/cache"
	applogger "SmartEnergy/pkg/logger"
	xutil "SmartEnergy/pkg/util"
)

const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
)

var leaderboardKey = cache.Key("leaderboard", "top", MaxLeaderboardSize)

// LeaderboardUseCase ranks users by their last stored eco score. The full
// ranking is cached and sliced per request.
type LeaderboardUseCase struct {
	users  drepo.UserStore
	cache  cache.Service
	ttl    time.Duration
	logger *applogger.Logger
}

// NewLeaderboardUseCase creates a leaderboard cached for ttl.
func NewLeaderboardUseCase(users drepo.UserStore, c cache.Service, ttl time.Duration, l *applogger.Logger) *LeaderboardUseCase {
	return &LeaderboardUseCase{users: users, cache: c, ttl: ttl, logger: l}
}

func (u *LeaderboardUseCase) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	limit = xutil.ClampInt(limit, 1, MaxLeaderboardSize)

	all, err := cache.GetOrLoad(ctx, u.cache, leaderboardKey, u.ttl, func(ctx context.Context) ([]models.LeaderboardEntry, error) {
		return u.users.TopByEcoScore(ctx, MaxLeaderboardSize)
	})
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ScoreChanged drops the cached ranking.
func (u *LeaderboardUseCase) ScoreChanged(ctx context.Context, userID string, _ int) {
	if err := u.cache.Delete(ctx, leaderboardKey); err != nil {
		u.logger.Warn("invalidate leaderboard", applogger.String("user_id", userID), applogger.Error(err))
	}
}

var _ ScoreListener = (*LeaderboardUseCase)(nil)
