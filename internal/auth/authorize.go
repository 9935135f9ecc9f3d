package auth

// ItemRequirement declares the grants an operation needs on one resource
// item. Only the fields set to true are required.
type ItemRequirement struct {
	ItemID int
	Create bool
	Update bool
	Delete bool
	Read   bool
}

// Requirements declares the authorization inputs for one protected operation.
// A zero Requirements value authorizes every authenticated principal.
type Requirements struct {
	Roles       []int
	ItemActions []ItemRequirement
}

// Guard is one predicate in the authorization chain. A nil error means the
// principal passes.
type Guard func(p Principal) error

// RequireRoles passes when the principal's role set intersects the declared
// set. With no declared roles the guard always passes.
func RequireRoles(roles ...int) Guard {
	return func(p Principal) error {
		if len(roles) == 0 {
			return nil
		}
		if p.HasAnyRole(roles...) {
			return nil
		}
		return ErrForbidden
	}
}

// RequireItemActions passes when every declared requirement is covered by the
// principal's item-action matrix. Administrators bypass the matrix entirely.
// With no declared requirements the guard always passes.
func RequireItemActions(reqs ...ItemRequirement) Guard {
	return func(p Principal) error {
		if len(reqs) == 0 {
			return nil
		}
		if p.HasRole(RoleAdministrator) {
			return nil
		}
		for _, req := range reqs {
			granted, ok := p.ItemActions[req.ItemID]
			if !ok {
				return ErrForbidden
			}
			if req.Create && !granted.Create {
				return ErrForbidden
			}
			if req.Update && !granted.Update {
				return ErrForbidden
			}
			if req.Delete && !granted.Delete {
				return ErrForbidden
			}
			if req.Read && !granted.Read {
				return ErrForbidden
			}
		}
		return nil
	}
}

// Chain evaluates guards in order, short-circuiting on the first failure.
func Chain(guards ...Guard) Guard {
	return func(p Principal) error {
		for _, g := range guards {
			if g == nil {
				continue
			}
			if err := g(p); err != nil {
				return err
			}
		}
		return nil
	}
}

// Authorize evaluates the standard guard chain for the operation: role guard
// first, then item-action guard.
func Authorize(p Principal, req Requirements) error {
	return Chain(
		RequireRoles(req.Roles...),
		RequireItemActions(req.ItemActions...),
	)(p)
}
