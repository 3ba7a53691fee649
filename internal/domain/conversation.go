package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a conversation.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return Status(s), true
	}
	return "", false
}

// CanTransitionTo reports whether the lifecycle permits moving from s
// to next. open and in-progress swap freely, as do in-progress and
// resolved (a moderator can reopen work). closed is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	if s == StatusClosed || s == next {
		return false
	}
	switch s {
	case StatusOpen:
		return next == StatusInProgress || next == StatusClosed
	case StatusInProgress:
		return next == StatusOpen || next == StatusResolved || next == StatusClosed
	case StatusResolved:
		return next == StatusInProgress || next == StatusClosed
	}
	return false
}

// Conversation is a single customer-support thread. The customer fields
// are set at creation and never change; assignment and status mutate
// under the coordinator's per-conversation serialization.
type Conversation struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	UserName       string     `json:"user_name"`
	UserEmail      string     `json:"user_email"`
	UserPhone      string     `json:"user_phone,omitempty"`
	Subject        string     `json:"subject"`
	Category       string     `json:"category"`
	Status         Status     `json:"status"`
	AssignedTo     *uuid.UUID `json:"assigned_to,omitempty"`
	AssignedToName string     `json:"assigned_to_name,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
}

// IsAssignedTo reports whether moderatorID currently holds the claim.
func (c Conversation) IsAssignedTo(moderatorID uuid.UUID) bool {
	return c.AssignedTo != nil && *c.AssignedTo == moderatorID
}

// AccessibleBy reports whether the actor may read this conversation and
// its messages. Admins see everything; moderators see unclaimed
// conversations and their own claims; customers see their own threads.
func (c Conversation) AccessibleBy(actorID uuid.UUID, role Role) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleModerator:
		return c.AssignedTo == nil || *c.AssignedTo == actorID
	case RoleUser:
		return c.UserID == actorID
	}
	return false
}
