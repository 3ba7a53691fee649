package services

import (
	"context"

	"techlight-support/internal/events"
)

// Broadcaster is the fan-out seam. In production it is the Redis
// publisher; tests plug in a recorder.
type Broadcaster interface {
	Publish(ctx context.Context, env events.Envelope) error
}
