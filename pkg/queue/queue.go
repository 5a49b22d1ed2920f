package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher enqueues a message for the job registered under msgType.
type Publisher interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

type QueueConfig struct {
	Workers    int
	RetryLimit int
	// RetryDelay is the first retry delay; later attempts double it.
	RetryDelay time.Duration
	PollEvery  time.Duration
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// Decode unmarshals a job payload into T.
func Decode[T any](payload json.RawMessage) (*T, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}

// retryDelay is base * 2^(attempt-1), capped at one hour.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= time.Hour {
			return time.Hour
		}
	}
	return d
}
