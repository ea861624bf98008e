package domain

import (
	"errors"
	"strings"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// Role is the coarse privilege level of a user. ADMIN implies everything
// USER can do.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleUser, RoleAdmin:
		return r, nil
	default:
		return "", ErrUnknownRole
	}
}

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

func (r Role) String() string { return string(r) }
