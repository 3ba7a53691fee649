package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"techlight-support/internal/domain"
	"techlight-support/internal/events"
	"techlight-support/internal/repository"
	support_errors "techlight-support/pkg/errors"
	"techlight-support/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.DevelopmentMode)
}

// memConversations is an in-memory ConversationRepository honoring the
// same conditional-write semantics as the Postgres implementation.
type memConversations struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.Conversation
}

func newMemConversations() *memConversations {
	return &memConversations{items: make(map[uuid.UUID]domain.Conversation)}
}

func (m *memConversations) Create(_ context.Context, c *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.ID] = *c
	return nil
}

func (m *memConversations) GetByID(_ context.Context, id uuid.UUID) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return domain.Conversation{}, support_errors.ErrNotFound
	}
	return c, nil
}

func (m *memConversations) List(_ context.Context, filter repository.ConversationFilter) ([]domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Conversation
	for _, c := range m.items {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.AssignedTo != nil && (c.AssignedTo == nil || *c.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.UserID != nil && c.UserID != *filter.UserID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case ai != nil && aj != nil:
			return ai.After(*aj)
		case ai != nil:
			return true
		case aj != nil:
			return false
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memConversations) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return support_errors.ErrNotFound
	}
	if c.Status != from {
		return support_errors.ErrInvalidTransition
	}
	c.Status = to
	m.items[id] = c
	return nil
}

func (m *memConversations) Claim(_ context.Context, id, moderatorID uuid.UUID, moderatorName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return support_errors.ErrNotFound
	}
	if c.Status == domain.StatusClosed {
		return support_errors.ErrConversationClosed
	}
	if c.AssignedTo != nil && *c.AssignedTo != moderatorID {
		return support_errors.ErrAlreadyAssigned
	}
	c.AssignedTo = &moderatorID
	c.AssignedToName = moderatorName
	m.items[id] = c
	return nil
}

func (m *memConversations) Release(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return support_errors.ErrNotFound
	}
	if c.Status == domain.StatusClosed {
		return support_errors.ErrConversationClosed
	}
	c.AssignedTo = nil
	c.AssignedToName = ""
	m.items[id] = c
	return nil
}

func (m *memConversations) TouchLastMessage(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return support_errors.ErrNotFound
	}
	if c.LastMessageAt == nil || !c.LastMessageAt.After(at) {
		c.LastMessageAt = &at
		m.items[id] = c
	}
	return nil
}

// memMessages is an in-memory MessageRepository assigning per-conversation
// sequence numbers the way the Postgres implementation does.
type memMessages struct {
	mu   sync.Mutex
	logs map[uuid.UUID][]domain.Message
}

func newMemMessages() *memMessages {
	return &memMessages{logs: make(map[uuid.UUID][]domain.Message)}
}

func (m *memMessages) Append(_ context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.Seq = int64(len(m.logs[msg.ConversationID]) + 1)
	m.logs[msg.ConversationID] = append(m.logs[msg.ConversationID], *msg)
	return nil
}

func (m *memMessages) ListByConversation(_ context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Message, len(m.logs[conversationID]))
	copy(out, m.logs[conversationID])
	return out, nil
}

// recorder captures everything published so tests can assert on the
// fan-out without Redis.
type recorder struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (r *recorder) Publish(_ context.Context, env events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
	return nil
}

func (r *recorder) all() []events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Envelope, len(r.envelopes))
	copy(out, r.envelopes)
	return out
}

func (r *recorder) count(event, room string) int {
	n := 0
	for _, env := range r.all() {
		if env.Event == event && env.Room == room {
			n++
		}
	}
	return n
}

// blockingArchiver signals when a transcript upload lands, so tests can
// wait for the background goroutine.
type blockingArchiver struct {
	done chan struct{}
	mu   sync.Mutex
	conv domain.Conversation
	msgs []domain.Message
}

func newBlockingArchiver() *blockingArchiver {
	return &blockingArchiver{done: make(chan struct{}, 1)}
}

func (a *blockingArchiver) ArchiveTranscript(_ context.Context, conv domain.Conversation, msgs []domain.Message) error {
	a.mu.Lock()
	a.conv = conv
	a.msgs = msgs
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}
