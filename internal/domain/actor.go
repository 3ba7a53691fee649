package domain

import "github.com/google/uuid"

// Actor is the authenticated identity behind a request, as supplied by
// the external identity provider.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role Role
}
