package media

import "fmt"

// Role describes an item's position in a version relationship.
type Role int

const (
	// RoleStandalone items have no version relationship.
	RoleStandalone Role = iota
	// RolePrimary items are the canonical representative of a version group.
	RolePrimary
	// RoleAlternate items are linked under another primary.
	RoleAlternate
)

func (r Role) String() string {
	switch r {
	case RoleStandalone:
		return "standalone"
	case RolePrimary:
		return "primary"
	case RoleAlternate:
		return "alternate"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// MergeState is the version relationship an item currently holds.
type MergeState struct {
	Role                 Role
	LinkedAlternateCount int
}

// IsPrimary reports whether the item is a primary version.
func (s MergeState) IsPrimary() bool {
	return s.Role == RolePrimary
}

// Unmerged reports whether the item may be merged into a new group. A primary
// with zero linked alternates is a no-op primary and still counts as unmerged.
func (s MergeState) Unmerged() bool {
	switch s.Role {
	case RoleStandalone:
		return true
	case RolePrimary:
		return s.LinkedAlternateCount == 0
	default:
		return false
	}
}

func (s MergeState) String() string {
	if s.Role == RolePrimary {
		return fmt.Sprintf("primary(%d alternates)", s.LinkedAlternateCount)
	}
	return s.Role.String()
}
