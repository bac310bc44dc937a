package auth

import "fmt"

// Role is the coarse authorization level carried in an access token.
type Role string

const (
	RoleUser        Role = "user"
	RoleAdmin       Role = "admin"    // manages exactly one scope
	RoleSystemAdmin Role = "sysadmin" // manages every scope
)

// ParseRole validates a role name from a token or the database.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAdmin, RoleSystemAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Principal is the authenticated caller: who they are, their role and the
// scope (organization) an admin manages.
type Principal struct {
	UserID  string
	Role    Role
	ScopeID string
}

func (p Principal) IsSystemAdmin() bool {
	return p.Role == RoleSystemAdmin
}

// Manages reports whether p may administer resources owned by scopeID.
func (p Principal) Manages(scopeID string) bool {
	if p.IsSystemAdmin() {
		return true
	}
	return p.Role == RoleAdmin && scopeID != "" && p.ScopeID == scopeID
}
