package websocket

import "context"

// Subscriber delivers fan-out payloads published by any instance.
type Subscriber interface {
	Run(ctx context.Context, handler func(room string, payload []byte)) error
}

// RedisBridge republishes Pub/Sub traffic into the local hub, so every
// instance's connected clients see every room's events.
type RedisBridge struct {
	subscriber Subscriber
	hub        *Hub
}

func NewRedisBridge(subscriber Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Run(ctx, func(room string, payload []byte) {
		b.hub.Broadcast(room, payload)
	})
}
