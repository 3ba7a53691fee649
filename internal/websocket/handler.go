package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"techlight-support/internal/events"
	"techlight-support/internal/services"
	"techlight-support/internal/transport/httpdto"
	"techlight-support/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Presence marks staff connections online/offline. Optional.
type Presence interface {
	SetOnline(ctx context.Context, userID, displayName string) error
	SetOffline(ctx context.Context, userID string) error
}

// Handler upgrades HTTP connections and drives the per-connection read
// loop: room joins, typing signals and pings.
type Handler struct {
	auth       *services.AuthService
	hub        *Hub
	authorizer *RoomAuthorizer
	typing     *services.TypingService
	presence   Presence
	logger     *logger.Logger
}

func NewHandler(
	auth *services.AuthService,
	hub *Hub,
	authorizer *RoomAuthorizer,
	typing *services.TypingService,
	presence Presence,
	l *logger.Logger,
) *Handler {
	return &Handler{
		auth:       auth,
		hub:        hub,
		authorizer: authorizer,
		typing:     typing,
		presence:   presence,
		logger:     l,
	}
}

// Connect upgrades the request and serves the connection until it
// drops. Staff connections auto-join the support-team room.
func (h *Handler) Connect(c *gin.Context) {
	actor, err := h.auth.ParseAccessToken(extractToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade for %s: %v", actor.ID, err)
		return
	}

	client := NewClient(conn, actor)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	if actor.Role.IsStaff() {
		h.hub.Join(client, events.SupportTeamRoom)
		if h.presence != nil {
			if err := h.presence.SetOnline(ctx, actor.ID.String(), actor.Name); err != nil {
				h.logger.Warnf("presence online for %s: %v", actor.ID, err)
			}
		}
	}

	h.readLoop(ctx, client)

	// Disconnect implies typing-stop for every joined conversation room.
	h.stopTypingEverywhere(client)
	if actor.Role.IsStaff() && h.presence != nil {
		if err := h.presence.SetOffline(context.Background(), actor.ID.String()); err != nil {
			h.logger.Warnf("presence offline for %s: %v", actor.ID, err)
		}
	}
	h.hub.Unregister(client)
}

func (h *Handler) readLoop(ctx context.Context, client *Client) {
	client.Conn.SetReadLimit(maxMessageSize)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnf("websocket unexpected close for %s: %v", client.UserID, err)
			}
			return
		}
		_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := parseInbound(data)
		if err != nil {
			continue
		}
		h.handleInbound(ctx, client, msg)
	}
}

func (h *Handler) handleInbound(ctx context.Context, client *Client, msg inboundMessage) {
	switch msg.Type {
	case "join":
		ok, err := h.authorizer.CanJoin(ctx, client.Actor(), msg.Room)
		if err != nil || !ok {
			client.SendMessage(joinDeniedPayload(msg.Room))
			return
		}
		h.hub.Join(client, msg.Room)
	case "leave":
		h.hub.Leave(client, msg.Room)
		h.setTyping(ctx, client, msg, false)
	case "typing:start", "typing:stop":
		if !client.limiter.Allow() {
			return
		}
		h.setTyping(ctx, client, msg, msg.Type == "typing:start")
	case "ping":
		client.SendMessage([]byte(`{"event":"pong"}`))
	default:
		h.logger.Warnf("websocket unknown message type %q from %s", msg.Type, client.UserID)
	}
}

func (h *Handler) setTyping(ctx context.Context, client *Client, msg inboundMessage, isTyping bool) {
	if msg.ConversationID == uuid.Nil {
		return
	}
	if !client.InRoom(events.ConversationRoom(msg.ConversationID)) {
		return
	}
	if err := h.typing.SetTyping(ctx, client.Actor(), msg.ConversationID, isTyping); err != nil {
		h.logger.Warnf("typing for %s in %s: %v", client.UserID, msg.ConversationID, err)
	}
}

// stopTypingEverywhere clears any live typing signal the connection may
// have left behind in conversation rooms it had joined.
func (h *Handler) stopTypingEverywhere(client *Client) {
	client.mu.RLock()
	rooms := make([]string, 0, len(client.rooms))
	for room := range client.rooms {
		rooms = append(rooms, room)
	}
	client.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, room := range rooms {
		if convID, ok := events.ParseConversationRoom(room); ok {
			_ = h.typing.SetTyping(ctx, client.Actor(), convID, false)
		}
	}
}

// joinDeniedPayload marshals the denial so an arbitrary room name
// cannot break the JSON.
func joinDeniedPayload(room string) []byte {
	payload, _ := json.Marshal(struct {
		Event string `json:"event"`
		Room  string `json:"room"`
	}{Event: "join_denied", Room: room})
	return payload
}

func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
