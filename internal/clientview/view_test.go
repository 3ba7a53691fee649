package clientview

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"techlight-support/internal/domain"
	"techlight-support/internal/events"
)

func mustEnvelope(t *testing.T, event string, room string, payload any) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(event, room, payload)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	return env
}

func newTestConversation(userID uuid.UUID) domain.Conversation {
	return domain.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		UserName:  "Dana",
		UserEmail: "dana@example.com",
		Subject:   "Broken headphones",
		Status:    domain.StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
}

func newTestMessage(convID, senderID uuid.UUID, seq int64) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		Seq:            seq,
		SenderID:       senderID,
		SenderName:     "Dana",
		SenderRole:     domain.RoleUser,
		Body:           "still broken",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestViewDeduplicatesEchoAndBroadcast(t *testing.T) {
	mod := domain.Actor{ID: uuid.New(), Name: "Riley", Role: domain.RoleModerator}
	v := New(mod)

	conv := newTestConversation(uuid.New())
	v.SetConversations([]domain.Conversation{conv})

	msg := newTestMessage(conv.ID, mod.ID, 1)

	// The send RPC echoes the message back first...
	v.Reconcile(msg, conv)
	// ...then the room broadcast delivers the same message again.
	env := mustEnvelope(t, events.EventNewMessage, events.ConversationRoom(conv.ID), msg)
	if err := v.Apply(env); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got := v.Messages(conv.ID); len(got) != 1 {
		t.Fatalf("log length = %d, want 1 after de-dup", len(got))
	}
}

func TestViewDeduplicatesDoubleBroadcast(t *testing.T) {
	v := New(domain.Actor{ID: uuid.New(), Role: domain.RoleModerator})
	conv := newTestConversation(uuid.New())
	v.SetConversations([]domain.Conversation{conv})

	// Customer messages go out under two event names; same message id.
	msg := newTestMessage(conv.ID, conv.UserID, 1)
	room := events.ConversationRoom(conv.ID)
	for _, event := range []string{events.EventNewMessage, events.EventNewUserMessage} {
		if err := v.Apply(mustEnvelope(t, event, room, msg)); err != nil {
			t.Fatalf("apply %s: %v", event, err)
		}
	}

	if got := v.Messages(conv.ID); len(got) != 1 {
		t.Fatalf("log length = %d, want 1", len(got))
	}
}

func TestViewOrdersBySeq(t *testing.T) {
	v := New(domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin})
	conv := newTestConversation(uuid.New())
	v.SetConversations([]domain.Conversation{conv})

	// Broadcasts can arrive out of order across reconnects.
	second := newTestMessage(conv.ID, conv.UserID, 2)
	first := newTestMessage(conv.ID, conv.UserID, 1)
	room := events.ConversationRoom(conv.ID)
	v.Apply(mustEnvelope(t, events.EventNewMessage, room, second))
	v.Apply(mustEnvelope(t, events.EventNewMessage, room, first))

	log := v.Messages(conv.ID)
	if len(log) != 2 || log[0].Seq != 1 || log[1].Seq != 2 {
		t.Fatalf("log not ordered by seq: %+v", log)
	}
}

func TestViewBadges(t *testing.T) {
	mod := domain.Actor{ID: uuid.New(), Name: "Riley", Role: domain.RoleModerator}
	v := New(mod)

	unclaimed := newTestConversation(uuid.New())
	mine := newTestConversation(uuid.New())
	mine.AssignedTo = &mod.ID
	theirs := newTestConversation(uuid.New())
	other := uuid.New()
	theirs.AssignedTo = &other
	closed := newTestConversation(uuid.New())
	closed.Status = domain.StatusClosed

	v.SetConversations([]domain.Conversation{unclaimed, mine, theirs, closed})

	available, assigned := v.Badges()
	if available != 1 {
		t.Errorf("available = %d, want 1", available)
	}
	if assigned != 1 {
		t.Errorf("mine = %d, want 1", assigned)
	}

	// A release puts the thread back into the available pool.
	env := mustEnvelope(t, events.EventReleased, events.SupportTeamRoom, events.AssignmentPayload{
		ConversationID: theirs.ID,
	})
	if err := v.Apply(env); err != nil {
		t.Fatalf("apply release: %v", err)
	}
	available, _ = v.Badges()
	if available != 2 {
		t.Errorf("available after release = %d, want 2", available)
	}
}

func TestViewStatusAndComposition(t *testing.T) {
	admin := domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin}
	v := New(admin)
	conv := newTestConversation(uuid.New())
	v.SetConversations([]domain.Conversation{conv})

	if !v.CanCompose(conv.ID) {
		t.Fatal("open conversation should accept input")
	}

	env := mustEnvelope(t, events.EventStatusChanged, events.ConversationRoom(conv.ID), events.StatusPayload{
		ConversationID: conv.ID,
		Status:         domain.StatusClosed,
	})
	if err := v.Apply(env); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if v.CanCompose(conv.ID) {
		t.Error("composition must be disabled once closed")
	}
	if got, _ := v.Conversation(conv.ID); got.Status != domain.StatusClosed {
		t.Errorf("status = %s, want closed", got.Status)
	}
}

func TestViewCloseActionVisibility(t *testing.T) {
	if New(domain.Actor{Role: domain.RoleModerator}).CanClose() {
		t.Error("moderators never see close")
	}
	if New(domain.Actor{Role: domain.RoleUser}).CanClose() {
		t.Error("customers never see close")
	}
	if !New(domain.Actor{Role: domain.RoleAdmin}).CanClose() {
		t.Error("admins see close")
	}
}

func TestViewTyping(t *testing.T) {
	self := domain.Actor{ID: uuid.New(), Name: "Riley", Role: domain.RoleModerator}
	v := New(self)
	conv := newTestConversation(uuid.New())
	v.SetConversations([]domain.Conversation{conv})
	room := events.ConversationRoom(conv.ID)

	other := uuid.New()
	v.Apply(mustEnvelope(t, events.EventTyping, room, events.TypingPayload{
		ConversationID: conv.ID, ActorID: other, ActorName: "Dana", IsTyping: true,
	}))
	// The viewer's own typing echo is ignored.
	v.Apply(mustEnvelope(t, events.EventTyping, room, events.TypingPayload{
		ConversationID: conv.ID, ActorID: self.ID, ActorName: self.Name, IsTyping: true,
	}))

	if got := v.TypingNames(conv.ID); len(got) != 1 || got[0] != "Dana" {
		t.Fatalf("typing = %v, want [Dana]", got)
	}

	// Their message landing clears the indicator.
	msg := newTestMessage(conv.ID, other, 1)
	v.Apply(mustEnvelope(t, events.EventNewMessage, room, msg))
	if got := v.TypingNames(conv.ID); len(got) != 0 {
		t.Fatalf("typing after message = %v, want empty", got)
	}
}

func TestViewOptimisticSendReconciles(t *testing.T) {
	user := domain.Actor{ID: uuid.New(), Name: "Dana", Role: domain.RoleUser}
	v := New(user)
	conv := newTestConversation(user.ID)
	v.SetConversations([]domain.Conversation{conv})

	sentAt := time.Now().UTC()
	v.RecordSend(conv.ID, sentAt)
	if got, _ := v.Conversation(conv.ID); got.LastMessageAt == nil {
		t.Fatal("optimistic send should bump last activity")
	}

	// Server answers with the authoritative copy and a later timestamp.
	msg := newTestMessage(conv.ID, user.ID, 1)
	msg.CreatedAt = sentAt.Add(50 * time.Millisecond)
	updated := conv
	updated.LastMessageAt = &msg.CreatedAt
	v.Reconcile(msg, updated)

	got, _ := v.Conversation(conv.ID)
	if got.LastMessageAt == nil || !got.LastMessageAt.Equal(msg.CreatedAt) {
		t.Errorf("last activity = %v, want %v", got.LastMessageAt, msg.CreatedAt)
	}
	if len(v.Messages(conv.ID)) != 1 {
		t.Error("reconciled message should be in the log")
	}
}
