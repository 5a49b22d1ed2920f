package usecase

import (
	"context"
	"errors"
	"time"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	xutil "SmartEnergy/pkg/util"
)

var ErrArchiveDisabled = errors.New("reading archive disabled")

const (
	DefaultHistoryRange = time.Hour
	MaxHistoryLimit     = 5000
)

// HistoryUseCase reads archived readings. archive is nil when archiving is off.
type HistoryUseCase struct {
	archive drepo.ReadingArchive
	now     func() time.Time
}

// NewHistoryUseCase creates a history use case; a nil archive disables it.
func NewHistoryUseCase(archive drepo.ReadingArchive) *HistoryUseCase {
	return &HistoryUseCase{archive: archive, now: time.Now}
}

func (u *HistoryUseCase) Enabled() bool { return u.archive != nil }

// normalize fills a missing range with the last hour and bounds the limit.
func (u *HistoryUseCase) normalize(q models.HistoryQuery) models.HistoryQuery {
	if q.To.IsZero() {
		q.To = u.now()
	}
	if q.From.IsZero() || !q.From.Before(q.To) {
		q.From = q.To.Add(-DefaultHistoryRange)
	}
	q.Limit = xutil.ClampInt(q.Limit, 1, MaxHistoryLimit)
	return q
}

func (u *HistoryUseCase) Readings(ctx context.Context, q models.HistoryQuery) ([]models.ArchivedReading, error) {
	if u.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return u.archive.Query(ctx, u.normalize(q))
}

// Buckets aggregates the range; the last, partial bucket is included.
func (u *HistoryUseCase) Buckets(ctx context.Context, q models.HistoryQuery, bucket drepo.Bucket) ([]models.PowerBucket, error) {
	if u.archive == nil {
		return nil, ErrArchiveDisabled
	}
	q = u.normalize(q)
	from, to, d := xutil.AlignRange(q.From, q.To, string(bucket))
	q.From, q.To = from, to.Add(d)
	return u.archive.Aggregate(ctx, q, bucket)
}
