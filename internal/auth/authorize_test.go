package auth

import (
	"errors"
	"testing"
)

func TestRequireRoles(t *testing.T) {
	p := Principal{ID: 1, Roles: []int{RoleTriage}}

	if err := RequireRoles()(p); err != nil {
		t.Fatalf("empty requirement must pass: %v", err)
	}
	if err := RequireRoles(RoleTriage, RoleSupervisor)(p); err != nil {
		t.Fatalf("intersecting role must pass: %v", err)
	}
	if err := RequireRoles(RoleSupervisor)(p); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRequireItemActions(t *testing.T) {
	p := Principal{
		ID:    2,
		Roles: []int{RoleTriage},
		ItemActions: map[int]ItemActions{
			ItemPatients: {ItemID: ItemPatients, Read: true},
		},
	}

	if err := RequireItemActions()(p); err != nil {
		t.Fatalf("empty requirement must pass: %v", err)
	}
	if err := RequireItemActions(ItemRequirement{ItemID: ItemPatients, Read: true})(p); err != nil {
		t.Fatalf("granted action must pass: %v", err)
	}
	if err := RequireItemActions(ItemRequirement{ItemID: ItemPatients, Update: true})(p); !errors.Is(err, ErrForbidden) {
		t.Fatalf("ungranted action: expected ErrForbidden, got %v", err)
	}
	if err := RequireItemActions(ItemRequirement{ItemID: ItemAppointments, Read: true})(p); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unknown item: expected ErrForbidden, got %v", err)
	}
}

func TestAdministratorBypassesItemActions(t *testing.T) {
	admin := Principal{ID: 3, Roles: []int{RoleAdministrator}}

	err := RequireItemActions(
		ItemRequirement{ItemID: ItemPatients, Create: true, Update: true, Delete: true, Read: true},
	)(admin)
	if err != nil {
		t.Fatalf("administrator must bypass the item matrix: %v", err)
	}

	// The bypass covers item actions only, not role membership.
	if err := RequireRoles(RoleSupervisor)(admin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestChainShortCircuits(t *testing.T) {
	calls := 0
	failing := Guard(func(Principal) error { calls++; return ErrForbidden })
	counting := Guard(func(Principal) error { calls++; return nil })

	err := Chain(failing, counting)(Principal{})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected short-circuit after first guard, got %d calls", calls)
	}
}

func TestAuthorizeEvaluatesRolesBeforeItems(t *testing.T) {
	p := Principal{ID: 4, Roles: []int{RoleTriage}}
	req := Requirements{
		Roles:       []int{RoleSupervisor},
		ItemActions: []ItemRequirement{{ItemID: ItemPatients, Read: true}},
	}
	if err := Authorize(p, req); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := Authorize(p, Requirements{}); err != nil {
		t.Fatalf("zero requirements must pass: %v", err)
	}
}
