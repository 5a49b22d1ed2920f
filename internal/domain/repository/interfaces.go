package repository

import (
	"context"
	"errors"

	"SmartEnergy/internal/domain/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserStore persists registered users.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	// First returns the earliest registered user, the default alert recipient.
	First(ctx context.Context) (*models.User, error)
	UpdateEcoScore(ctx context.Context, id string, score int) error
	TopByEcoScore(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Close() error
}

// ReadingArchive is long-term storage for every recorded reading.
type ReadingArchive interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, readings []models.ArchivedReading) error
	Query(ctx context.Context, q models.HistoryQuery) ([]models.ArchivedReading, error)
	Aggregate(ctx context.Context, q models.HistoryQuery, bucket Bucket) ([]models.PowerBucket, error)
	Health(ctx context.Context) error
	Close() error
}

// MeterStream is a push feed of readings from a remote meter gateway.
type MeterStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Reading, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Metrics interface {
	RecordReading(source string, power float64, windowLen int)
	RecordAnomaly(reason string)
	RecordAlert(channel string, ok bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
