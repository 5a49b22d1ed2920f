package repository

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"SmartEnergy/internal/domain/models"
	domrepo "SmartEnergy/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func user(id, email string) *models.User {
	return &models.User{ID: id, Name: strings.ToUpper(id), Email: email, Phone: "+10000000000", PasswordHash: "h"}
}

func TestMemoryUserStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	_, err := s.First(ctx)
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	require.NoError(t, s.Create(ctx, user("a", "a@x.io")))
	require.NoError(t, s.Create(ctx, user("b", "b@x.io")))
	assert.ErrorIs(t, s.Create(ctx, user("c", "a@x.io")), domrepo.ErrDuplicateEmail)

	got, err := s.FindByEmail(ctx, "b@x.io")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.FindByID(ctx, "zzz")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	first, err := s.First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", first.ID)
}

func TestMemoryUserStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	require.NoError(t, s.Create(ctx, user("a", "a@x.io")))

	got, _ := s.FindByID(ctx, "a")
	got.Name = "mutated"

	again, _ := s.FindByID(ctx, "a")
	assert.Equal(t, "A", again.Name)
}

func TestMemoryUserStoreLeaderboard(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Create(ctx, user(id, id+"@x.io")))
	}
	require.NoError(t, s.UpdateEcoScore(ctx, "a", 40))
	require.NoError(t, s.UpdateEcoScore(ctx, "b", 75))
	require.NoError(t, s.UpdateEcoScore(ctx, "c", 40))
	assert.ErrorIs(t, s.UpdateEcoScore(ctx, "nope", 1), domrepo.ErrNotFound)

	top, err := s.TopByEcoScore(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.LeaderboardEntry{
		{Name: "B", Email: "b@x.io", EcoScore: 75},
		{Name: "A", Email: "a@x.io", EcoScore: 40},
		{Name: "C", Email: "c@x.io", EcoScore: 40},
	}, top, "unscored users are left out and ties keep signup order")

	top, _ = s.TopByEcoScore(ctx, 1)
	assert.Len(t, top, 1)
}

func TestMemoryUserStoreConcurrentSignups(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Create(ctx, user(string(rune('a'+i)), "same@x.io"))
		}(i)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
}

func TestBuildInsert(t *testing.T) {
	ts := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	q, args := buildInsert("readings", []models.ArchivedReading{
		{RecordedAt: ts, Meter: "m1", Source: models.SourceLive, Label: "10:00:00 AM", Power: 420},
		{RecordedAt: ts, Meter: "m1", Source: models.SourceUsage, Power: 900, Anomaly: true, Reason: models.ReasonThreshold},
	})
	assert.True(t, strings.HasPrefix(q, "INSERT INTO readings (recorded_at, meter, source, label, power, anomaly, reason) VALUES "))
	assert.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?, ?, ?, ?)"))
	assert.Len(t, args, 14)
	assert.Equal(t, true, args[12])

	q, args = buildInsert("readings", nil)
	assert.Empty(t, q)
	assert.Nil(t, args)
}

func TestBuildHistoryQuery(t *testing.T) {
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	q, args := buildHistoryQuery("readings", models.HistoryQuery{From: from, To: to})
	assert.NotContains(t, q, "meter = ?")
	assert.Equal(t, []interface{}{from, to, defaultLimit}, args)

	q, args = buildHistoryQuery("readings", models.HistoryQuery{Meter: "m1", From: from, To: to, Limit: 10})
	assert.Contains(t, q, "meter = ?")
	assert.Contains(t, q, "ORDER BY recorded_at DESC")
	assert.Equal(t, []interface{}{from, to, "m1", 10}, args)
}

func TestBuildAggregateQuery(t *testing.T) {
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	q, args := buildAggregateQuery("readings", models.HistoryQuery{From: from, To: from.Add(time.Hour), Limit: 60}, domrepo.Bucket5m)
	assert.Contains(t, q, "INTERVAL 300 SECOND")
	assert.Contains(t, q, "GROUP BY bucket")
	assert.Len(t, args, 3)
}

func TestReadingsSchema(t *testing.T) {
	stmts := readingsSchema("readings")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS readings")
	assert.Contains(t, stmts[0], "ENGINE = MergeTree")
}
