package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"techlight-support/internal/events"
)

// Publisher fans envelopes out through Redis Pub/Sub, one channel per
// room. Every instance's subscriber bridge (including this one's)
// republishes into its local hub, so this is the single publish path.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, env events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, events.ChannelFor(env.Room), data).Err()
}
