package usecase

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"SmartEnergy/internal/domain/models"
	drepo "SmartEnergy/internal/domain/repository"
	mid "SmartEnergy/internal/middleware"
	"SmartEnergy/internal/repository"
	"SmartEnergy/internal/service/auth"
	"SmartEnergy/internal/services/analytics"
	"SmartEnergy/internal/services/meter"
	"SmartEnergy/pkg/cache"
	applogger "SmartEnergy/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type meterFixture struct {
	uc      *MeterUseCase
	window  *meter.Window
	alerts  *fakeDispatcher
	metrics *fakeMetrics
	archive *ReadingArchiver
	store   *fakeArchive
}

func newMeterFixture(t *testing.T) meterFixture {
	t.Helper()
	w := meter.NewWindow(meter.DefaultCapacity)
	d := &fakeDispatcher{}
	m := newFakeMetrics()
	store := &fakeArchive{}
	arch := NewReadingArchiver(store, m, applogger.Nop(), 100, time.Hour)
	sim := meter.NewSimulator(meter.WithSource(rand.NewSource(7)))
	uc := NewMeterUseCase(w, sim, analytics.NewEngine(analytics.DefaultConfig()), d, m, applogger.Nop(),
		WithArchiver(arch), WithDefaultMeter("home"))
	return meterFixture{uc: uc, window: w, alerts: d, metrics: m, archive: arch, store: store}
}

func TestIngestClassifiesAndDispatches(t *testing.T) {
	f := newMeterFixture(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		live, err := f.uc.Ingest(ctx, models.SourceUsage, models.Reading{Time: "1:00:00 PM", Power: 300})
		require.NoError(t, err)
		assert.False(t, live.Anomaly)
		assert.Equal(t, "", live.Reason)
	}

	live, err := f.uc.Ingest(ctx, models.SourceUsage, models.Reading{Time: "1:00:12 PM", Power: 900})
	require.NoError(t, err)
	assert.Equal(t, models.LiveReading{
		Time:    "1:00:12 PM",
		Power:   900,
		Voltage: 230,
		Current: "3.91",
		Anomaly: true,
		Reason:  models.ReasonThreshold,
	}, live)

	assert.Equal(t, []dispatched{{models.ReasonThreshold, 900}}, f.alerts.all())
	assert.Equal(t, []string{models.ReasonThreshold}, f.metrics.anomalies)
	assert.Equal(t, 7, f.metrics.readings[models.SourceUsage])
	assert.Equal(t, 7, f.window.Len())

	recent := f.uc.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "home", recent[1].Meter)
}

func TestIngestResponseIgnoresDispatchOutcome(t *testing.T) {
	f := newMeterFixture(t)
	f.alerts.reject = true
	for i := 0; i < 6; i++ {
		_, _ = f.uc.Ingest(context.Background(), models.SourceUsage, models.Reading{Power: 300})
	}
	live, err := f.uc.Ingest(context.Background(), models.SourceUsage, models.Reading{Power: 900})
	require.NoError(t, err)
	assert.True(t, live.Anomaly)
	assert.NotEmpty(t, live.Time, "missing labels are filled in")
}

func TestIngestRejectsInvalidPower(t *testing.T) {
	f := newMeterFixture(t)
	for _, p := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := f.uc.Ingest(context.Background(), models.SourceUsage, models.Reading{Power: p})
		assert.ErrorIs(t, err, meter.ErrInvalidReading)
	}
	assert.Equal(t, 0, f.window.Len())
	assert.Empty(t, f.alerts.all())
}

func TestLiveUsesSimulator(t *testing.T) {
	f := newMeterFixture(t)
	live, err := f.uc.Live(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, live.Power, 200.0)
	assert.Less(t, live.Power, 600.0)
	assert.Equal(t, 1, f.metrics.readings[models.SourceLive])
}

func TestIngestArchivesReadings(t *testing.T) {
	f := newMeterFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.uc.Ingest(context.Background(), models.SourceUsage, models.Reading{Power: 100})
		require.NoError(t, err)
	}
	require.NoError(t, f.archive.Stop(context.Background()))
	assert.Equal(t, 3, f.store.stored())
	assert.Equal(t, models.SourceUsage, f.store.batches[0][0].Source)
}

func TestProcessorFeedsIngest(t *testing.T) {
	f := newMeterFixture(t)
	p := mid.NewIngestPipeline(f.uc.Processor(models.SourceStream), f.metrics, mid.WithMaxRPS(0))
	require.NoError(t, p.Process(context.Background(), &models.Reading{Power: 250, Meter: "m9"}))
	assert.Equal(t, 1, f.metrics.readings[models.SourceStream])
}

func TestReadingArchiverBatches(t *testing.T) {
	store := &fakeArchive{}
	a := NewReadingArchiver(store, newFakeMetrics(), applogger.Nop(), 2, time.Hour)
	a.Start()
	for i := 0; i < 5; i++ {
		assert.True(t, a.Enqueue(models.ArchivedReading{Power: float64(i)}))
	}
	require.NoError(t, a.Stop(context.Background()))

	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 2)
	assert.Len(t, store.batches[2], 1)
	assert.False(t, a.Enqueue(models.ArchivedReading{}), "enqueue after stop")
}

func TestReadingArchiverFlushesOnTimeout(t *testing.T) {
	store := &fakeArchive{}
	a := NewReadingArchiver(store, newFakeMetrics(), applogger.Nop(), 100, 10*time.Millisecond)
	a.Start()
	a.Enqueue(models.ArchivedReading{Power: 1})
	require.Eventually(t, func() bool { return store.stored() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, a.Stop(context.Background()))
}

func TestReadingArchiverDropsWhenFull(t *testing.T) {
	m := newFakeMetrics()
	a := NewReadingArchiver(&fakeArchive{}, m, applogger.Nop(), 1, time.Hour)
	// not started: capacity is batchSize*4
	for i := 0; i < 4; i++ {
		require.True(t, a.Enqueue(models.ArchivedReading{}))
	}
	assert.False(t, a.Enqueue(models.ArchivedReading{}))
	assert.Contains(t, m.errs, "archive_buffer_full")
}

func fill(w *meter.Window, p float64, n int) {
	for i := 0; i < n; i++ {
		_, _ = w.Record(models.Reading{Power: p})
	}
}

func newAuth(t *testing.T, users drepo.UserStore) *AuthUseCase {
	t.Helper()
	return NewAuthUseCase(users, auth.NewHasher(bcrypt.MinCost), auth.NewTokenIssuer("secret", time.Hour), applogger.Nop())
}

func TestAuthSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	users := repository.NewMemoryUserStore()
	a := newAuth(t, users)

	req := &models.SignupRequest{Name: "Ravi", Email: " Ravi@Example.com ", Phone: "+919811111111", Password: "secret1"}
	require.NoError(t, a.Signup(ctx, req))
	assert.ErrorIs(t, a.Signup(ctx, &models.SignupRequest{Name: "R2", Email: "ravi@example.com", Password: "another"}), ErrEmailExists)

	_, err := a.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = a.Login(ctx, &models.LoginRequest{Email: "ravi@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	resp, err := a.Login(ctx, &models.LoginRequest{Email: "RAVI@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, MsgLoginOK, resp.Message)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.Profile{Name: "Ravi", Email: "ravi@example.com", Phone: "+919811111111"}, resp.User)

	stored, err := users.FindByEmail(ctx, "ravi@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	me, err := a.Me(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", me.Name)

	_, err = a.Me(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestInsightsEcoScorePersistsAndInvalidatesLeaderboard(t *testing.T) {
	ctx := context.Background()
	users := repository.NewMemoryUserStore()
	require.NoError(t, newAuth(t, users).Signup(ctx, &models.SignupRequest{Name: "Ana", Email: "ana@x.io", Password: "secret1"}))
	ana, _ := users.FindByEmail(ctx, "ana@x.io")

	mem := cache.NewMemoryCache()
	defer mem.Close()
	board := NewLeaderboardUseCase(users, mem, time.Minute, applogger.Nop())

	w := meter.NewWindow(200)
	ins := NewInsightsUseCase(w, analytics.NewEngine(analytics.DefaultConfig()), users, board, applogger.Nop())

	s := ins.EcoScore(ctx, ana.ID)
	assert.False(t, s.Sufficient)
	assert.Equal(t, 50, s.Score)

	top, err := board.Top(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top, "insufficient scores are not stored")

	fill(w, 500, 20)
	s = ins.EcoScore(ctx, ana.ID)
	assert.Equal(t, 42, s.Score)

	top, err = board.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.LeaderboardEntry{{Name: "Ana", Email: "ana@x.io", EcoScore: 42}}, top)

	anon := ins.EcoScore(ctx, "")
	assert.Equal(t, 42, anon.Score)
}

func TestInsightsPredictAndRecommend(t *testing.T) {
	w := meter.NewWindow(200)
	ins := NewInsightsUseCase(w, analytics.NewEngine(analytics.DefaultConfig()), repository.NewMemoryUserStore(), nil, applogger.Nop())

	assert.False(t, ins.Predict(context.Background()).Sufficient)
	assert.Equal(t, []string{analytics.AdviceCollecting}, ins.Recommendations(context.Background()))

	fill(w, 400, 14)
	fill(w, 1000, 6)
	p := ins.Predict(context.Background())
	assert.InDelta(t, 2923.2, p.PredictedBill, 1e-6)
	assert.Len(t, ins.Recommendations(context.Background()), 5)
	assert.Equal(t, 20, ins.Summary(context.Background()).Samples)
}

func TestLeaderboardCachesRanking(t *testing.T) {
	ctx := context.Background()
	users := repository.NewMemoryUserStore()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, users.Create(ctx, &models.User{ID: id, Name: id, Email: id + "@x.io"}))
	}
	require.NoError(t, users.UpdateEcoScore(ctx, "a", 10))
	require.NoError(t, users.UpdateEcoScore(ctx, "b", 30))

	mem := cache.NewMemoryCache()
	defer mem.Close()
	board := NewLeaderboardUseCase(users, mem, time.Minute, applogger.Nop())

	top, err := board.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "b", top[0].Name)

	// served from cache until invalidated
	require.NoError(t, users.UpdateEcoScore(ctx, "c", 99))
	top, _ = board.Top(ctx, 5)
	assert.Len(t, top, 2)

	board.ScoreChanged(ctx, "c", 99)
	top, _ = board.Top(ctx, 5)
	require.Len(t, top, 3)
	assert.Equal(t, "c", top[0].Name)
}

func TestAlertTrigger(t *testing.T) {
	d := &fakeDispatcher{}
	assert.True(t, NewAlertUseCase(d).Trigger(context.Background()))
	assert.Equal(t, []dispatched{{"Demo alert triggered manually", 999}}, d.all())
}

func TestFirstUserResolver(t *testing.T) {
	ctx := context.Background()
	users := repository.NewMemoryUserStore()
	r := NewFirstUserResolver(users)

	_, err := r.Resolve(ctx)
	assert.ErrorIs(t, err, drepo.ErrNotFound)

	require.NoError(t, users.Create(ctx, &models.User{ID: "1", Name: "First", Email: "first@x.io", Phone: "+1"}))
	require.NoError(t, users.Create(ctx, &models.User{ID: "2", Name: "Second", Email: "second@x.io"}))
	c, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Contact{Name: "First", Email: "first@x.io", Phone: "+1"}, c)
}

func TestHistoryUseCase(t *testing.T) {
	ctx := context.Background()

	_, err := NewHistoryUseCase(nil).Readings(ctx, models.HistoryQuery{})
	assert.ErrorIs(t, err, ErrArchiveDisabled)
	_, err = NewHistoryUseCase(nil).Buckets(ctx, models.HistoryQuery{}, drepo.Bucket1m)
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	store := &fakeArchive{}
	h := NewHistoryUseCase(store)
	now := time.Date(2026, 6, 1, 12, 30, 30, 0, time.UTC)
	h.now = func() time.Time { return now }

	_, err = h.Readings(ctx, models.HistoryQuery{Meter: "m1", Limit: 1_000_000})
	require.NoError(t, err)
	assert.Equal(t, now, store.query.To)
	assert.Equal(t, now.Add(-time.Hour), store.query.From)
	assert.Equal(t, MaxHistoryLimit, store.query.Limit)

	_, err = h.Buckets(ctx, models.HistoryQuery{}, drepo.Bucket5m)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 1, 11, 30, 0, 0, time.UTC), store.query.From)
	assert.Equal(t, time.Date(2026, 6, 1, 12, 35, 0, 0, time.UTC), store.query.To)
}

func TestKafkaReadingsHandler(t *testing.T) {
	f := newMeterFixture(t)
	h := NewKafkaReadingsHandler("energy.readings", f.uc, f.metrics)
	assert.Equal(t, "energy.readings", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"time":"9:00:00 AM","power":321,"meter":"m2"}`)))
	assert.Equal(t, 1, f.metrics.readings[models.SourceKafka])
	assert.Equal(t, "m2", f.uc.Recent(1)[0].Meter)

	assert.Error(t, h.Handle(context.Background(), []byte(`{`)))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"time":"x"}`)))
	assert.ErrorIs(t, h.Handle(context.Background(), []byte(`{"power":-5}`)), meter.ErrInvalidReading)
}
