package support_errors

import "errors"

// Business errors shared across the coordinator. Handlers map these to
// HTTP status codes; everything else is treated as an internal error.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConversationClosed = errors.New("conversation closed")
	ErrAlreadyAssigned    = errors.New("conversation already assigned")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidInput       = errors.New("invalid input")
)
