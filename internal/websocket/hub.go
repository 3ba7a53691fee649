package websocket

import (
	"context"
	"sync"
)

type hubRequestKind int

const (
	reqRegister hubRequestKind = iota
	reqUnregister
	reqJoin
	reqLeave
)

// hubRequest is a lifecycle or membership change. All four kinds share
// one channel so they are applied in the order they were issued; a
// join queued before an unregister must never land after it.
type hubRequest struct {
	kind   hubRequestKind
	client *Client
	room   string
}

// Hub manages WebSocket client connections and room membership. Fan-out
// is per room: one room per conversation plus the shared support-team
// room.
type Hub struct {
	mu sync.RWMutex

	// clients maps client ID to client (for cleanup)
	clients map[string]*Client

	// rooms maps room name to the set of clients joined to it
	rooms map[string]map[*Client]struct{}

	requests chan hubRequest
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[*Client]struct{}),
		requests: make(chan hubRequest, 1024),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-h.requests:
			switch req.kind {
			case reqRegister:
				h.addClient(req.client)
			case reqUnregister:
				h.removeClient(req.client)
			case reqJoin:
				h.joinRoom(req.client, req.room)
			case reqLeave:
				h.leaveRoom(req.client, req.room)
			}
		}
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.requests <- hubRequest{kind: reqRegister, client: client}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.requests <- hubRequest{kind: reqUnregister, client: client}
}

// Join adds a client to a room
func (h *Hub) Join(client *Client, room string) {
	h.requests <- hubRequest{kind: reqJoin, client: client, room: room}
}

// Leave removes a client from a room
func (h *Hub) Leave(client *Client, room string) {
	h.requests <- hubRequest{kind: reqLeave, client: client, room: room}
}

// Broadcast sends a payload to every client currently in the room.
// Delivery is at-most-once per connected client; replay is the message
// log's job.
func (h *Hub) Broadcast(room string, payload []byte) {
	h.mu.RLock()
	clients := h.rooms[room]
	for c := range clients {
		c.SendMessage(payload)
	}
	h.mu.RUnlock()
}

// RoomSize returns the number of clients in a room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A join for a client that already unregistered would put a closed
	// Send channel back into the fan-out set.
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.trackRoom(room)
}

func (h *Hub) leaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	client.untrackRoom(room)
}
