package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"SmartEnergy/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is a list-backed job queue with a delayed-retry ZSET and a
// dead letter list.
type RedisQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	client    *redis.Client
	keyPrefix string

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets the namespace for queue keys.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

// NewRedisQueue creates a new Redis-backed queue.
func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 10 * time.Second
	}
	if config.PollEvery <= 0 {
		config.PollEvery = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:    lgr,
		config:    config,
		client:    client,
		keyPrefix: "smartenergy:queue",
		jobs:      make(map[string]Job),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry mover.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("queue already running")
	}
	r.running = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return fmt.Errorf("redis ping: %w", err)
	}

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryLoop()

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.client.Options().Addr),
		logger.String("prefix", r.keyPrefix))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs or ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for queue workers: %w", ctx.Err())
	case <-done:
		r.logger.Info("redis queue stopped")
		return nil
	}
}

// PublishMessage implements Publisher.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()

	if !running {
		return errors.New("queue not running")
	}
	if !known {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	data, err := json.Marshal(Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()

	for r.ctx.Err() == nil {
		res, err := r.client.BRPop(r.ctx, time.Second, r.queueKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || r.ctx.Err() != nil {
				continue
			}
			r.logger.Error("brpop", logger.Int("worker_id", id), logger.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.logger.Error("unmarshal message", logger.Error(err))
			continue
		}
		r.process(msg)
	}
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("no job found", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.deadLetter(msg)
		return
	}

	err := job.Handle(r.ctx, msg.Payload)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		// shutting down: put it back for the next run
		r.requeue(msg)
		return
	}

	r.logger.Error("job failed",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= r.config.RetryLimit {
		r.logger.Error("max retries reached", logger.String("id", msg.ID), logger.String("job", job.Name()))
		r.deadLetter(msg)
		return
	}
	msg.Attempts++
	r.scheduleRetry(msg, time.Now().Add(retryDelay(r.config.RetryDelay, msg.Attempts)))
}

func (r *RedisQueue) scheduleRetry(msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal retry", logger.Error(err))
		return
	}
	if err := r.client.ZAdd(context.Background(), r.retryKey(), redis.Z{Score: float64(at.Unix()), Member: data}).Err(); err != nil {
		r.logger.Error("zadd retry", logger.Error(err))
	}
}

func (r *RedisQueue) requeue(msg Message) {
	data, _ := json.Marshal(msg)
	if err := r.client.RPush(context.Background(), r.queueKey(), data).Err(); err != nil {
		r.logger.Error("requeue", logger.Error(err))
	}
}

func (r *RedisQueue) deadLetter(msg Message) {
	data, _ := json.Marshal(msg)
	if err := r.client.LPush(context.Background(), r.deadLetterKey(), data).Err(); err != nil {
		r.logger.Error("lpush dlq", logger.Error(err))
	}
}

func (r *RedisQueue) retryLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.moveDueRetries()
		}
	}
}

func (r *RedisQueue) moveDueRetries() {
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		if r.ctx.Err() == nil {
			r.logger.Error("fetch retry messages", logger.Error(err))
		}
		return
	}

	for _, member := range due {
		pipe := r.client.TxPipeline()
		pipe.ZRem(r.ctx, r.retryKey(), member)
		pipe.LPush(r.ctx, r.queueKey(), member)
		if _, err := pipe.Exec(r.ctx); err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.logger.Error("move retry to queue", logger.Error(err))
		}
	}
}

func (r *RedisQueue) queueKey() string      { return r.keyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string      { return r.keyPrefix + ":retry" }
func (r *RedisQueue) deadLetterKey() string { return r.keyPrefix + ":dlq" }
