package alert

import (
	"context"
	"fmt"

	"SmartEnergy/internal/domain/models"
)

// Publisher is satisfied by pkg/kafka.Producer.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

// KafkaChannel publishes every alert as JSON for downstream consumers.
type KafkaChannel struct {
	pub   Publisher
	topic string
}

// NewKafkaChannel creates a channel publishing alerts to topic.
func NewKafkaChannel(pub Publisher, topic string) *KafkaChannel {
	return &KafkaChannel{pub: pub, topic: topic}
}

func (c *KafkaChannel) Name() string { return "kafka" }

func (c *KafkaChannel) Notify(ctx context.Context, a models.Alert) error {
	if err := c.pub.PublishMessage(ctx, c.topic, a); err != nil {
		return fmt.Errorf("publish alert %s: %w", a.ID, err)
	}
	return nil
}
