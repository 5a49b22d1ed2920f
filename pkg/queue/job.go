package queue

import (
	"context"
	"encoding/json"
)

// Job handles every message of one Type.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}
