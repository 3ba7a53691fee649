package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"techlight-support/internal/events"
)

// Subscriber listens on the room channel pattern and hands each
// payload to the handler. Runs until ctx is cancelled.
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

func (s *Subscriber) Run(ctx context.Context, handler func(room string, payload []byte)) error {
	sub := s.client.PSubscribe(ctx, events.ChannelPattern)
	defer sub.Close()

	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		handler(events.RoomFromChannel(msg.Channel), []byte(msg.Payload))
	}
}
