package blog

// Role is an account's role.
type Role string

const (
	// RoleReader can browse published entries.
	RoleReader Role = "reader"
	// RoleBlogger can author entries and edit their own.
	RoleBlogger Role = "blogger"
	// RoleAdmin can manage accounts and edit any entry.
	RoleAdmin Role = "admin"
)

// ParseRole maps a raw string onto a known role.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	return role, role.IsValid()
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleReader, RoleBlogger, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanAuthor reports whether this role may create entries
func (r Role) CanAuthor() bool {
	switch r {
	case RoleBlogger, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(min Role) bool {
	hierarchy := map[Role]int{
		RoleReader:  0,
		RoleBlogger: 1,
		RoleAdmin:   2,
	}

	level, ok := hierarchy[r]
	if !ok {
		return false
	}

	required, ok := hierarchy[min]
	if !ok {
		return false
	}

	return level >= required
}

func (r Role) String() string {
	return string(r)
}
