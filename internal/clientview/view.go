package clientview

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"techlight-support/internal/domain"
	"techlight-support/internal/events"
)

// View is the consumer-side state model behind the live-chat panel.
// It is transport-agnostic: feed it the envelopes a connection receives
// and the direct RPC results, and it maintains a consistent picture.
//
// Messages can reach a client twice, once as the send RPC's response
// and once as the room broadcast, so every ingest path de-duplicates by
// message id.
type View struct {
	mu sync.Mutex

	self          domain.Actor
	conversations map[uuid.UUID]domain.Conversation
	messages      map[uuid.UUID][]domain.Message
	seen          map[uuid.UUID]struct{}
	typing        map[uuid.UUID]map[uuid.UUID]string
}

func New(self domain.Actor) *View {
	return &View{
		self:          self,
		conversations: make(map[uuid.UUID]domain.Conversation),
		messages:      make(map[uuid.UUID][]domain.Message),
		seen:          make(map[uuid.UUID]struct{}),
		typing:        make(map[uuid.UUID]map[uuid.UUID]string),
	}
}

// Apply ingests one broadcast envelope.
func (v *View) Apply(env events.Envelope) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch env.Event {
	case events.EventNewConversation:
		var conv domain.Conversation
		if err := json.Unmarshal(env.Payload, &conv); err != nil {
			return err
		}
		v.conversations[conv.ID] = conv

	case events.EventNewMessage, events.EventNewUserMessage:
		var msg domain.Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return err
		}
		v.ingestMessage(msg)

	case events.EventAssigned, events.EventReleased:
		var p events.AssignmentPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		if conv, ok := v.conversations[p.ConversationID]; ok {
			conv.AssignedTo = p.AssignedTo
			conv.AssignedToName = p.AssignedToName
			v.conversations[conv.ID] = conv
		}

	case events.EventStatusChanged:
		var p events.StatusPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		if conv, ok := v.conversations[p.ConversationID]; ok {
			conv.Status = p.Status
			v.conversations[conv.ID] = conv
		}

	case events.EventTyping:
		var p events.TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return err
		}
		if p.ActorID == v.self.ID {
			return nil
		}
		if p.IsTyping {
			if v.typing[p.ConversationID] == nil {
				v.typing[p.ConversationID] = make(map[uuid.UUID]string)
			}
			v.typing[p.ConversationID][p.ActorID] = p.ActorName
		} else {
			delete(v.typing[p.ConversationID], p.ActorID)
		}
	}
	return nil
}

// SetConversations seeds the list from the initial REST fetch.
func (v *View) SetConversations(convs []domain.Conversation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, conv := range convs {
		v.conversations[conv.ID] = conv
	}
}

// SetMessages seeds a conversation's log from the initial REST fetch;
// broadcast copies of the same messages are then de-duplicated away.
func (v *View) SetMessages(msgs []domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range msgs {
		v.ingestMessage(m)
	}
}

// RecordSend bumps last-activity optimistically the moment the user
// hits send; Reconcile replaces that guess with the server's answer.
func (v *View) RecordSend(conversationID uuid.UUID, at time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if conv, ok := v.conversations[conversationID]; ok {
		if conv.LastMessageAt == nil || conv.LastMessageAt.Before(at) {
			conv.LastMessageAt = &at
			v.conversations[conv.ID] = conv
		}
	}
}

// Reconcile ingests a send RPC's response: the authoritative message
// and the conversation (which may have been claimed by the send).
func (v *View) Reconcile(msg domain.Message, conv domain.Conversation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.conversations[conv.ID] = conv
	v.ingestMessage(msg)
}

// ingestMessage appends exactly once per message id. Callers hold v.mu.
func (v *View) ingestMessage(msg domain.Message) {
	if _, dup := v.seen[msg.ID]; dup {
		return
	}
	v.seen[msg.ID] = struct{}{}

	log := append(v.messages[msg.ConversationID], msg)
	sort.SliceStable(log, func(i, j int) bool { return log[i].Seq < log[j].Seq })
	v.messages[msg.ConversationID] = log

	if conv, ok := v.conversations[msg.ConversationID]; ok {
		if conv.LastMessageAt == nil || conv.LastMessageAt.Before(msg.CreatedAt) {
			at := msg.CreatedAt
			conv.LastMessageAt = &at
			v.conversations[conv.ID] = conv
		}
	}
	// A quiet conversation stops showing its sender as typing once the
	// message lands.
	delete(v.typing[msg.ConversationID], msg.SenderID)
}

// Messages returns the rendered log for a conversation, oldest first.
func (v *View) Messages(conversationID uuid.UUID) []domain.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.Message, len(v.messages[conversationID]))
	copy(out, v.messages[conversationID])
	return out
}

// Conversation returns the current record for id, if known.
func (v *View) Conversation(id uuid.UUID) (domain.Conversation, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	conv, ok := v.conversations[id]
	return conv, ok
}

// Badges reports the support-team counters: unclaimed conversations
// and conversations assigned to this viewer. Closed threads count for
// neither.
func (v *View) Badges() (available, mine int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, conv := range v.conversations {
		if conv.Status == domain.StatusClosed {
			continue
		}
		switch {
		case conv.AssignedTo == nil:
			available++
		case *conv.AssignedTo == v.self.ID:
			mine++
		}
	}
	return available, mine
}

// CanCompose reports whether the composer should accept input:
// composition is disabled once a conversation is closed.
func (v *View) CanCompose(conversationID uuid.UUID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	conv, ok := v.conversations[conversationID]
	return ok && conv.Status != domain.StatusClosed
}

// CanClose reports whether the close action should be offered at all.
func (v *View) CanClose() bool {
	return v.self.Role.CanClose()
}

// TypingNames lists who is currently typing in a conversation.
func (v *View) TypingNames(conversationID uuid.UUID) []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	names := make([]string, 0, len(v.typing[conversationID]))
	for _, name := range v.typing[conversationID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
