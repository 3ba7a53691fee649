package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"techlight-support/internal/domain"
	"techlight-support/internal/events"
	"techlight-support/internal/repository"
	support_errors "techlight-support/pkg/errors"
	"techlight-support/pkg/logger"
)

// TranscriptArchiver uploads a closed conversation's transcript for
// audit retention. Optional; a nil archiver skips the upload.
type TranscriptArchiver interface {
	ArchiveTranscript(ctx context.Context, conv domain.Conversation, msgs []domain.Message) error
}

const archiveTimeout = 30 * time.Second

// ConversationService owns the conversation lifecycle: creation,
// listing, assignment (claim/release) and status transitions. All
// mutations on one conversation are serialized through ConversationLocks.
type ConversationService struct {
	repo      repository.ConversationRepository
	messages  repository.MessageRepository
	publisher Broadcaster
	archiver  TranscriptArchiver
	locks     *ConversationLocks
	logger    *logger.Logger
}

func NewConversationService(
	repo repository.ConversationRepository,
	messages repository.MessageRepository,
	publisher Broadcaster,
	archiver TranscriptArchiver,
	locks *ConversationLocks,
	l *logger.Logger,
) *ConversationService {
	return &ConversationService{
		repo:      repo,
		messages:  messages,
		publisher: publisher,
		archiver:  archiver,
		locks:     locks,
		logger:    l,
	}
}

type CreateConversationInput struct {
	UserID    uuid.UUID
	UserName  string
	UserEmail string
	UserPhone string
	Subject   string
	Category  string
}

// Create opens a new conversation in open status with no assignee and
// alerts the support-team room.
func (s *ConversationService) Create(ctx context.Context, input CreateConversationInput) (domain.Conversation, error) {
	if input.UserID == uuid.Nil || input.UserName == "" || input.UserEmail == "" || input.Subject == "" {
		return domain.Conversation{}, support_errors.ErrInvalidInput
	}

	conv := domain.Conversation{
		ID:        uuid.New(),
		UserID:    input.UserID,
		UserName:  input.UserName,
		UserEmail: input.UserEmail,
		UserPhone: input.UserPhone,
		Subject:   input.Subject,
		Category:  input.Category,
		Status:    domain.StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, &conv); err != nil {
		return domain.Conversation{}, err
	}

	s.broadcast(ctx, events.EventNewConversation, events.SupportTeamRoom, conv)
	return conv, nil
}

type ListFilter struct {
	Status     *domain.Status
	AssignedTo *uuid.UUID
}

// List returns conversations newest activity first. Customers only see
// their own threads; staff see everything (reading the message log is
// gated separately by assignment).
func (s *ConversationService) List(ctx context.Context, actor domain.Actor, filter ListFilter) ([]domain.Conversation, error) {
	repoFilter := repository.ConversationFilter{
		Status:     filter.Status,
		AssignedTo: filter.AssignedTo,
	}
	if !actor.Role.IsStaff() {
		repoFilter.UserID = &actor.ID
	}
	return s.repo.List(ctx, repoFilter)
}

// Get returns one conversation, applying the visibility rule.
func (s *ConversationService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Conversation, error) {
	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !conv.AccessibleBy(actor.ID, actor.Role) {
		return domain.Conversation{}, support_errors.ErrForbidden
	}
	return conv, nil
}

// Claim takes ownership of an unassigned conversation for the acting
// moderator. Re-claiming one's own conversation is a no-op success;
// a conversation held by another moderator fails with ErrAlreadyAssigned.
func (s *ConversationService) Claim(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Conversation, error) {
	if !actor.Role.IsStaff() {
		return domain.Conversation{}, support_errors.ErrForbidden
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.Claim(ctx, id, actor.ID, actor.Name); err != nil {
		return domain.Conversation{}, err
	}
	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Conversation{}, err
	}

	s.broadcastAssignment(ctx, events.EventAssigned, conv)
	return conv, nil
}

// Release returns the conversation to the unclaimed pool. Only the
// current assignee or an admin may release.
func (s *ConversationService) Release(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Conversation, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	if actor.Role != domain.RoleAdmin && !conv.IsAssignedTo(actor.ID) {
		return domain.Conversation{}, support_errors.ErrForbidden
	}
	if err := s.repo.Release(ctx, id); err != nil {
		return domain.Conversation{}, err
	}
	conv.AssignedTo = nil
	conv.AssignedToName = ""

	s.broadcastAssignment(ctx, events.EventReleased, conv)
	return conv, nil
}

// SetStatus applies a lifecycle transition. Closing is admin-only and
// terminal: nothing leaves closed.
func (s *ConversationService) SetStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, next domain.Status) (domain.Conversation, error) {
	if !actor.Role.IsStaff() {
		return domain.Conversation{}, support_errors.ErrForbidden
	}
	// The role gate applies regardless of the conversation's state.
	if next == domain.StatusClosed && !actor.Role.CanClose() {
		return domain.Conversation{}, support_errors.ErrForbidden
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	conv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !conv.AccessibleBy(actor.ID, actor.Role) {
		return domain.Conversation{}, support_errors.ErrForbidden
	}
	if conv.Status == domain.StatusClosed {
		return domain.Conversation{}, support_errors.ErrInvalidTransition
	}
	if !conv.Status.CanTransitionTo(next) {
		return domain.Conversation{}, support_errors.ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, id, conv.Status, next); err != nil {
		return domain.Conversation{}, err
	}
	conv.Status = next

	payload := events.StatusPayload{ConversationID: conv.ID, Status: next, ActorID: actor.ID}
	s.broadcast(ctx, events.EventStatusChanged, events.ConversationRoom(conv.ID), payload)
	s.broadcast(ctx, events.EventStatusChanged, events.SupportTeamRoom, payload)

	if next == domain.StatusClosed {
		s.archiveAsync(conv)
	}
	return conv, nil
}

// archiveAsync uploads the transcript in the background; a failed
// upload is logged, never surfaced to the closing admin.
func (s *ConversationService) archiveAsync(conv domain.Conversation) {
	if s.archiver == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		msgs, err := s.messages.ListByConversation(ctx, conv.ID)
		if err != nil {
			s.logger.Errorf("archive: list messages for %s: %v", conv.ID, err)
			return
		}
		if err := s.archiver.ArchiveTranscript(ctx, conv, msgs); err != nil {
			s.logger.Errorf("archive: upload transcript for %s: %v", conv.ID, err)
		}
	}()
}

func (s *ConversationService) broadcastAssignment(ctx context.Context, event string, conv domain.Conversation) {
	payload := events.AssignmentPayload{
		ConversationID: conv.ID,
		AssignedTo:     conv.AssignedTo,
		AssignedToName: conv.AssignedToName,
	}
	s.broadcast(ctx, event, events.ConversationRoom(conv.ID), payload)
	// The team room tracks assignment for the available/mine badges.
	s.broadcast(ctx, event, events.SupportTeamRoom, payload)
}

func (s *ConversationService) broadcast(ctx context.Context, event, room string, payload any) {
	env, err := events.NewEnvelope(event, room, payload)
	if err != nil {
		s.logger.Errorf("broadcast %s: marshal: %v", event, err)
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		s.logger.Errorf("broadcast %s to %s: %v", event, room, err)
	}
}
