package auth

import "fmt"

// Role is the authorization role of a user. The set is closed: only the
// constants below are valid.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleAdmin   Role = "ADMIN"
)

// DefaultRole is assigned when registration does not name one.
const DefaultRole = RolePatient

// ParseRole converts s to a Role, rejecting anything outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("auth: unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
