package auth

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is the closed set of roles a principal can hold
type Role string

const (
	// RoleCitizen reports and follows issues
	RoleCitizen Role = "CITIZEN"
	// RoleAdmin triages issues
	RoleAdmin Role = "ADMIN"
)

// Roles lists every valid role
func Roles() []Role {
	return []Role{RoleCitizen, RoleAdmin}
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleCitizen, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts the stored role names, with or without the legacy
// "ROLE_" prefix, case insensitive.
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "ROLE_")
	role := Role(name)
	if !role.IsValid() {
		return "", ErrInvalidRole.Clone().WithMetadata(map[string]any{
			"role": s,
		})
	}
	return role, nil
}

// Value implements driver.Valuer, rejecting unknown roles on write
func (r Role) Value() (driver.Value, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("refusing to store invalid role %q", string(r))
	}
	return string(r), nil
}

// Scan implements sql.Scanner, rejecting unknown roles on read
func (r *Role) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("role column is null")
	default:
		return fmt.Errorf("unsupported role column type %T", src)
	}

	role, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = role
	return nil
}
