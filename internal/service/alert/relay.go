package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"SmartEnergy/internal/domain/models"
	"SmartEnergy/pkg/queue"
)

// JobTypeDeliver is the queue message type carrying a models.Alert.
const JobTypeDeliver = "alert.deliver"

// RedisRelay hands alerts to the durable queue instead of delivering them inline.
type RedisRelay struct {
	pub queue.Publisher
}

// NewRedisRelay creates a sink that enqueues alerts as jobs.
func NewRedisRelay(pub queue.Publisher) *RedisRelay {
	return &RedisRelay{pub: pub}
}

func (r *RedisRelay) Deliver(ctx context.Context, a models.Alert) error {
	if err := r.pub.PublishMessage(ctx, JobTypeDeliver, a); err != nil {
		return fmt.Errorf("enqueue alert %s: %w", a.ID, err)
	}
	return nil
}

// AlertJob consumes queued alerts and fans them out. A returned error makes the
// queue retry the message and dead-letter it once retries are exhausted.
type AlertJob struct {
	fanout *Fanout
}

var _ queue.Job = (*AlertJob)(nil)

// NewAlertJob creates the queue job that fans alerts out.
func NewAlertJob(f *Fanout) *AlertJob {
	return &AlertJob{fanout: f}
}

func (j *AlertJob) Name() string { return "alert-delivery" }
func (j *AlertJob) Type() string { return JobTypeDeliver }

func (j *AlertJob) Handle(ctx context.Context, payload json.RawMessage) error {
	a, err := queue.Decode[models.Alert](payload)
	if err != nil {
		return err
	}
	return j.fanout.Deliver(ctx, *a)
}
