package domain

// Role identifies the kind of actor behind a request. The coordinator
// only understands these three; anything else is rejected at the edge.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleModerator, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// IsStaff reports whether the role belongs to the support team.
func (r Role) IsStaff() bool {
	return r == RoleModerator || r == RoleAdmin
}

// CanClose reports whether the role may move a conversation to closed.
// Closing is an admin-only action.
func (r Role) CanClose() bool {
	return r == RoleAdmin
}
