package auth

import "time"

// ItemActions holds the create/update/delete/read grants for one resource
// item, independent of role membership.
type ItemActions struct {
	ItemID int
	Create bool
	Update bool
	Delete bool
	Read   bool
}

// Principal is an authenticated user with fully resolved roles, permissions,
// item-action grants and (for clinicians) specialties. It is assembled fresh
// on every login and on every access-token verification, and is never
// mutated after assembly.
type Principal struct {
	ID          int64
	Username    string
	FirstName   string
	LastName    string
	IsClinician bool
	ClinicianID int64 // zero unless IsClinician
	Roles       []int
	Permissions []int
	ItemActions map[int]ItemActions
	Specialties []int
}

// HasRole reports whether the principal holds the given role.
func (p Principal) HasRole(role int) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of the roles.
func (p Principal) HasAnyRole(roles ...int) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// HasPermission reports whether the principal holds the global capability.
func (p Principal) HasPermission(perm int) bool {
	for _, id := range p.Permissions {
		if id == perm {
			return true
		}
	}
	return false
}

// HasBroadAccess reports whether any held role grants unrestricted record
// visibility.
func (p Principal) HasBroadAccess() bool {
	for _, r := range p.Roles {
		if _, ok := broadAccessRoles[r]; ok {
			return true
		}
	}
	return false
}

// Session is a freshly issued pair of signed tokens. The access and refresh
// tokens are signed with distinct secrets and are never interchangeable.
type Session struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthorizationScope describes, for one request, which specialty-scoped
// records the principal may see. It is computed once after authentication,
// attached to the request context and discarded at request end.
//
// When Unrestricted is true the remaining fields are meaningless and must be
// ignored by consumers.
type AuthorizationScope struct {
	Unrestricted     bool
	SpecialtyIDs     []int // sorted ascending
	OwnerClinicianID int64 // zero means no owner restriction
}

// AllowsSpecialty reports whether records of the given service id are visible
// under this scope.
func (s AuthorizationScope) AllowsSpecialty(id int) bool {
	if s.Unrestricted {
		return true
	}
	for _, sid := range s.SpecialtyIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// Empty reports whether the scope admits no specialty-scoped records at all.
func (s AuthorizationScope) Empty() bool {
	return !s.Unrestricted && len(s.SpecialtyIDs) == 0
}
