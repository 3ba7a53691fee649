package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"techlight-support/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// Typing traffic is keystroke-driven, so it gets a per-client budget.
const maxTypingEventsPerMinute = 60

// typingLimiter is a minute-window token bucket for typing signals.
type typingLimiter struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
}

func newTypingLimiter() *typingLimiter {
	return &typingLimiter{tokens: maxTypingEventsPerMinute, lastRefill: time.Now()}
}

func (l *typingLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastRefill) >= time.Minute {
		l.tokens = maxTypingEventsPerMinute
		l.lastRefill = now
	}
	if l.tokens > 0 {
		l.tokens--
		return true
	}
	return false
}

// Client represents a single WebSocket connection with its
// authenticated identity.
type Client struct {
	ID          string
	UserID      uuid.UUID
	DisplayName string
	Role        domain.Role

	Conn *websocket.Conn
	Send chan []byte

	rooms   map[string]bool
	limiter *typingLimiter
	mu      sync.RWMutex
}

func NewClient(conn *websocket.Conn, actor domain.Actor) *Client {
	return &Client{
		ID:          uuid.New().String(),
		UserID:      actor.ID,
		DisplayName: actor.Name,
		Role:        actor.Role,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		rooms:       make(map[string]bool),
		limiter:     newTypingLimiter(),
	}
}

func (c *Client) trackRoom(room string) {
	c.mu.Lock()
	c.rooms[room] = true
	c.mu.Unlock()
}

func (c *Client) untrackRoom(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

// InRoom checks if the client has joined a room
func (c *Client) InRoom(room string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[room]
}

// Actor rebuilds the identity this connection authenticated as.
func (c *Client) Actor() domain.Actor {
	return domain.Actor{ID: c.UserID, Name: c.DisplayName, Role: c.Role}
}

// SendMessage queues a payload for delivery (non-blocking)
func (c *Client) SendMessage(msg []byte) {
	select {
	case c.Send <- msg:
	default:
		// Buffer full, payload dropped; the log is the source of truth.
	}
}

// WriteLoop drains the Send channel onto the connection
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// inboundMessage is a command sent by a connected client.
type inboundMessage struct {
	Type           string    `json:"type"`
	Room           string    `json:"room,omitempty"`
	ConversationID uuid.UUID `json:"conversation_id,omitempty"`
}

func parseInbound(data []byte) (inboundMessage, error) {
	var msg inboundMessage
	err := json.Unmarshal(data, &msg)
	return msg, err
}
