package di

import (
	"context"
	"fmt"
	"time"

	"SmartEnergy/internal/domain/models"
	"SmartEnergy/internal/domain/repository"
	domsvc "SmartEnergy/internal/domain/service"
	"SmartEnergy/internal/handler/api"
	mid "SmartEnergy/internal/middleware"
	internalrepo "SmartEnergy/internal/repository"
	"SmartEnergy/internal/service/alert"
	"SmartEnergy/internal/service/auth"
	svcmetrics "SmartEnergy/internal/service/metrics"
	"SmartEnergy/internal/service/meterws"
	"SmartEnergy/internal/service/ratelimit"
	"SmartEnergy/internal/services/analytics"
	"SmartEnergy/internal/services/meter"
	"SmartEnergy/internal/usecase"
	"SmartEnergy/pkg/cache"
	pkgch "SmartEnergy/pkg/clickhouse"
	"SmartEnergy/pkg/config"
	xhttp "SmartEnergy/pkg/http"
	pkgkafka "SmartEnergy/pkg/kafka"
	applogger "SmartEnergy/pkg/logger"
	"SmartEnergy/pkg/metrics"
	"SmartEnergy/pkg/postgres"
	"SmartEnergy/pkg/queue"
	"SmartEnergy/pkg/server"

	"github.com/redis/go-redis/v9"
)

const serviceName = "smartenergy"

func noop() {}

// ProvideKafkaProducer creates the shared Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, noop, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the app logger. With Kafka enabled, warn and error
// entries are also aggregated onto the logs topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if producer == nil {
		return l, noop, nil
	}
	l.AddCollector(&applogger.CollectionConfig{
		Service:      serviceName,
		TimeInterval: 30 * time.Second,
		Topic:        cfg.Kafka.LogsTopic,
		Publisher:    producer,
	})
	return l, l.RemoveCollector, nil
}

// ProvideRedisClient dials Redis only when the cache or the alert queue needs it.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.RedisRequired() {
		return nil, noop, nil
	}
	client, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideClickHouseClient connects the reading archive, or returns nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, noop, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithAsyncInsert(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvidePostgresClient connects the user database when users.backend is postgres.
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	if cfg.Users.Backend != "postgres" {
		return nil, noop, nil
	}
	client, err := postgres.NewClient(cfg.Users.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideMetrics creates the Prometheus recorder and registers service collectors.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideUserStore keeps users in memory unless a Postgres client is configured.
func ProvideUserStore(pg *postgres.Client) (repository.UserStore, func(), error) {
	if pg == nil {
		store := internalrepo.NewMemoryUserStore()
		return store, func() { _ = store.Close() }, nil
	}
	store := internalrepo.NewPostgresUserStore(pg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, nil, fmt.Errorf("user schema: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// ProvideCache selects the leaderboard cache backend.
func ProvideCache(cfg *config.Config, rc *redis.Client) (cache.Service, func()) {
	var svc cache.Service
	switch cfg.Cache.Type {
	case "redis":
		svc = cache.NewRedisCache(rc, serviceName+":cache")
	case "layered":
		svc = cache.NewLayeredCache(
			cache.NewRedisCache(rc, serviceName+":cache"),
			cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		)
	default:
		svc = cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
	}
	return svc, func() { _ = svc.Close() }
}

// ProvideWindow creates the shared reading window.
func ProvideWindow(cfg *config.Config) *meter.Window {
	return meter.NewWindow(cfg.Meter.WindowSize)
}

func ProvideSimulator(cfg *config.Config) *meter.Simulator {
	return meter.NewSimulator(
		meter.WithRange(cfg.Meter.SimMin, cfg.Meter.SimSpan),
		meter.WithTimeLayout(cfg.Meter.TimeLayout),
	)
}

// ProvideEngine maps analytics config onto the engine.
func ProvideEngine(cfg *config.Config) *analytics.Engine {
	c := analytics.DefaultConfig()
	c.SubWindow = cfg.Analytics.SubWindow
	c.UnitPrice = cfg.Analytics.UnitPrice
	c.SpikeSigma = cfg.Analytics.SpikeSigma
	c.SharpRise = cfg.Analytics.SharpRise
	c.HighThreshold = cfg.Analytics.HighThreshold
	c.MinAnomalySamples = cfg.Analytics.MinAnomalySamples
	c.MinPredictSamples = cfg.Analytics.MinPredictSamples
	c.MinRecommendSamples = cfg.Analytics.MinRecommendSamples
	return analytics.NewEngine(c)
}

func ProvideTokenIssuer(cfg *config.Config) *auth.TokenIssuer {
	return auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
}

func ProvideHasher(cfg *config.Config) *auth.Hasher {
	return auth.NewHasher(cfg.Auth.BcryptCost)
}

// ProvideFanout assembles the enabled delivery channels.
func ProvideFanout(cfg *config.Config, l *applogger.Logger, m repository.Metrics, producer *pkgkafka.Producer) *alert.Fanout {
	var channels []alert.Channel
	if c := cfg.Alerts.Email; c.Enabled {
		channels = append(channels, alert.NewEmailChannel(c.Host, c.Port, c.User, c.Password, c.From))
	}
	if c := cfg.Alerts.SMS; c.Enabled {
		client := xhttp.NewClient(xhttp.WithTimeout(cfg.Alerts.Timeout))
		channels = append(channels, alert.NewSMSChannel(client, c.BaseURL, c.AccountSID, c.AuthToken, c.From))
	}
	if cfg.Alerts.Kafka.Enabled && producer != nil {
		channels = append(channels, alert.NewKafkaChannel(producer, cfg.Kafka.AlertsTopic))
	}

	f := alert.NewFanout(l, m, cfg.Alerts.Timeout, channels...)
	if len(channels) == 0 {
		l.Warn("no alert channels configured, alerts will only be logged")
	} else {
		l.Info("alert channels ready", applogger.Strings("channels", f.Channels()))
	}
	return f
}

// ProvideAlertQueue creates the Redis-backed delivery queue when alerts.backend is redis.
func ProvideAlertQueue(cfg *config.Config, l *applogger.Logger, rc *redis.Client, fanout *alert.Fanout) *queue.RedisQueue {
	if cfg.Alerts.Backend != "redis" || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Alerts.Workers,
		RetryLimit: cfg.Alerts.Redis.RetryLimit,
		RetryDelay: cfg.Alerts.Redis.RetryDelay,
	}, rc, queue.WithKeyPrefix(cfg.Alerts.Redis.KeyPrefix))
	q.RegisterJob(alert.NewAlertJob(fanout))
	return q
}

// ProvideAlertSink delivers inline, or relays through the Redis queue when one exists.
func ProvideAlertSink(fanout *alert.Fanout, q *queue.RedisQueue) alert.Sink {
	if q == nil {
		return fanout
	}
	return alert.NewRedisRelay(q)
}

func ProvideContactResolver(users repository.UserStore) domsvc.ContactResolver {
	return usecase.NewFirstUserResolver(users)
}

// ProvideDispatcher creates the async alert dispatcher over the configured sink.
func ProvideDispatcher(cfg *config.Config, l *applogger.Logger, m repository.Metrics, resolver domsvc.ContactResolver, sink alert.Sink) *alert.Dispatcher {
	return alert.NewDispatcher(l, m, resolver, sink,
		alert.WithWorkers(cfg.Alerts.Workers),
		alert.WithQueueSize(cfg.Alerts.QueueSize),
		alert.WithTimeout(cfg.Alerts.Timeout),
	)
}

// ProvideReadingArchive creates the ClickHouse archive and its schema. A nil
// client yields a nil archive, which disables history.
func ProvideReadingArchive(ch *pkgch.Client, l *applogger.Logger) (repository.ReadingArchive, error) {
	if ch == nil {
		return nil, nil
	}
	archive := internalrepo.NewClickHouseReadingArchive(ch, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

// ProvideReadingArchiver returns nil when the archive is disabled.
func ProvideReadingArchiver(cfg *config.Config, archive repository.ReadingArchive, m repository.Metrics, l *applogger.Logger) *usecase.ReadingArchiver {
	if archive == nil {
		return nil
	}
	return usecase.NewReadingArchiver(archive, m, l, cfg.ClickHouse.BatchSize, cfg.ClickHouse.BatchTimeout)
}

// ProvideMeterUseCase wires the archiver only when one exists.
func ProvideMeterUseCase(
	cfg *config.Config,
	window *meter.Window,
	sim *meter.Simulator,
	engine *analytics.Engine,
	dispatcher *alert.Dispatcher,
	m repository.Metrics,
	l *applogger.Logger,
	archiver *usecase.ReadingArchiver,
) *usecase.MeterUseCase {
	opts := []usecase.MeterOption{
		usecase.WithSubWindow(cfg.Analytics.SubWindow),
		usecase.WithTimeLayout(cfg.Meter.TimeLayout),
	}
	if archiver != nil {
		opts = append(opts, usecase.WithArchiver(archiver))
	}
	return usecase.NewMeterUseCase(window, sim, engine, dispatcher, m, l, opts...)
}

func ProvideLeaderboardUseCase(cfg *config.Config, users repository.UserStore, c cache.Service, l *applogger.Logger) *usecase.LeaderboardUseCase {
	return usecase.NewLeaderboardUseCase(users, c, cfg.Cache.LeaderboardTTL, l)
}

func ProvideInsightsUseCase(window *meter.Window, engine *analytics.Engine, users repository.UserStore, board *usecase.LeaderboardUseCase, l *applogger.Logger) *usecase.InsightsUseCase {
	return usecase.NewInsightsUseCase(window, engine, users, board, l)
}

func ProvideAuthUseCase(users repository.UserStore, hasher *auth.Hasher, tokens *auth.TokenIssuer, l *applogger.Logger) *usecase.AuthUseCase {
	return usecase.NewAuthUseCase(users, hasher, tokens, l)
}

func ProvideHistoryUseCase(archive repository.ReadingArchive) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(archive)
}

func ProvideAlertUseCase(dispatcher *alert.Dispatcher) *usecase.AlertUseCase {
	return usecase.NewAlertUseCase(dispatcher)
}

// ProvideKafkaConsumer subscribes the readings topic when Kafka is enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, meterUC *usecase.MeterUseCase, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers, c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.SourceHook())
	consumer.RegisterHandler(usecase.NewKafkaReadingsHandler(cfg.Kafka.ReadingsTopic, meterUC, m))
	return consumer, nil
}

// ProvideReadingCollector streams readings from the meter gateway when enabled.
func ProvideReadingCollector(cfg *config.Config, l *applogger.Logger, meterUC *usecase.MeterUseCase, m repository.Metrics) *usecase.ReadingCollector {
	if !cfg.Stream.Enabled {
		return nil
	}
	s := cfg.Stream
	stream := meterws.New(l, s.WebSocketURL,
		meterws.WithReconnectDelay(s.ReconnectDelay),
		meterws.WithPingInterval(s.PingInterval),
		meterws.WithTimeLayout(cfg.Meter.TimeLayout),
		meterws.WithBufferSize(s.BufferSize),
	)
	pipe := mid.NewIngestPipeline(meterUC.Processor(models.SourceStream), m,
		mid.WithMaxRPS(s.MaxRPS),
		mid.WithBufferSize(s.BufferSize),
	)
	return usecase.NewReadingCollector(stream, pipe, m, l)
}

// ProvideRateLimiter creates the limiter shared by rate-limited routes.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHealthChecks lists the dependencies reported by /healthz.
func ProvideHealthChecks(archive repository.ReadingArchive, rc *redis.Client, pg *postgres.Client) map[string]api.Checker {
	checks := map[string]api.Checker{}
	if archive != nil {
		checks["clickhouse"] = archive
	}
	if rc != nil {
		checks["redis"] = api.CheckerFunc(func(ctx context.Context) error { return rc.Ping(ctx).Err() })
	}
	if pg != nil {
		checks["postgres"] = api.CheckerFunc(func(ctx context.Context) error { return pg.DB().PingContext(ctx) })
	}
	return checks
}

// ProvideHTTPHandler combines every API route group.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	limiter *ratelimit.Limiter,
	tokens *auth.TokenIssuer,
	meterUC *usecase.MeterUseCase,
	history *usecase.HistoryUseCase,
	insights *usecase.InsightsUseCase,
	authUC *usecase.AuthUseCase,
	board *usecase.LeaderboardUseCase,
	alerts *usecase.AlertUseCase,
	checks map[string]api.Checker,
) xhttp.Handler {
	limit := api.RateLimit{
		Limiter:      limiter,
		Capacity:     cfg.RateLimit.Capacity,
		RefillPerSec: cfg.RateLimit.RefillPerSec,
	}
	return xhttp.Handlers{
		api.NewMeterHandler(l, meterUC, history, limit),
		api.NewInsightsHandler(l, insights, tokens),
		api.NewAuthHandler(l, authUC, tokens),
		api.NewLeaderboardHandler(l, board),
		api.NewAlertHandler(l, alerts, limit),
		api.NewHealthHandler(checks),
	}
}

// ProvideHTTPServer creates the echo server from config.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h xhttp.Handler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp collects everything with a start/stop lifecycle.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	dispatcher *alert.Dispatcher,
	alertQueue *queue.RedisQueue,
	archiver *usecase.ReadingArchiver,
	consumer *pkgkafka.Consumer,
	collector *usecase.ReadingCollector,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, l, httpServer,
		server.WithDispatcher(dispatcher),
		server.WithAlertQueue(alertQueue),
		server.WithArchiver(archiver),
		server.WithConsumer(consumer),
		server.WithCollector(collector),
		server.WithLimiter(limiter),
	)
}
