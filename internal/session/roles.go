// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

// Role is a FitTrack authorization role.
type Role string

// Known roles. Identity providers may emit values outside this set; the
// gateway passes unknown roles through unchanged instead of rejecting them.
const (
	RoleCustomer Role = "customer"
	RoleCoach    Role = "coach"
	RoleAdmin    Role = "admin"
)

// rolePriority orders known roles for primary-role derivation. Unknown
// roles rank below every known one.
func rolePriority(role Role) int {
	switch role {
	case RoleAdmin:
		return 3
	case RoleCoach:
		return 2
	case RoleCustomer:
		return 1
	default:
		return 0
	}
}

// NormalizeRoles reconciles the provider's role fields into one canonical
// set. The plural roles list is authoritative when present; the legacy
// singular role only matters for accounts predating multi-role support, and
// is treated as a one-element set. Duplicates are dropped, input order is
// kept.
func NormalizeRoles(legacy string, roles []string) []Role {
	source := roles
	if len(source) == 0 && legacy != "" {
		source = []string{legacy}
	}

	normalized := make([]Role, 0, len(source))
	seen := make(map[Role]struct{}, len(source))
	for _, raw := range source {
		if raw == "" {
			continue
		}
		role := Role(raw)
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		normalized = append(normalized, role)
	}
	return normalized
}

// PrimaryRole picks the single display role for a user: admin wins over
// coach, coach over customer. A set holding only unknown roles yields its
// first element unchanged; an empty set yields "".
func PrimaryRole(roles []Role) Role {
	if len(roles) == 0 {
		return ""
	}

	primary := roles[0]
	for _, role := range roles[1:] {
		if rolePriority(role) > rolePriority(primary) {
			primary = role
		}
	}
	return primary
}

// HasAnyRole reports whether the user's role set intersects the allowed
// set. An empty allowed set means any signed-in user qualifies.
func HasAnyRole(userRoles []Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, have := range userRoles {
		for _, want := range allowed {
			if have == want {
				return true
			}
		}
	}
	return false
}
