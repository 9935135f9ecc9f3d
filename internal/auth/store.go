package auth

import "context"

// EmployeeRecord is the identity row for one employee, joined with the
// clinician registry. PasswordHash is populated only by FindCredential.
type EmployeeRecord struct {
	PrincipalID  int64
	Username     string
	FirstName    string
	LastName     string
	ClinicianID  int64 // zero when the employee is not a clinician
	PasswordHash string
}

// IdentityStore is the read-only contract against the hospital master data.
// Role, permission and item grants are administered elsewhere; this service
// only reads them.
//
// Lookup methods returning slices yield empty results, not errors, when no
// rows match. Row-absence on single-row lookups is reported as ErrNotFound.
type IdentityStore interface {
	// FindCredential resolves a login identifier to the stored identity row,
	// including the password hash.
	FindCredential(ctx context.Context, username string) (*EmployeeRecord, error)

	// FindEmployee resolves a principal id to its identity row. The password
	// hash is not loaded.
	FindEmployee(ctx context.Context, principalID int64) (*EmployeeRecord, error)

	// Roles returns the role ids assigned to the principal.
	Roles(ctx context.Context, principalID int64) ([]int, error)

	// Permissions returns the distinct global capability ids granted through
	// the principal's roles.
	Permissions(ctx context.Context, principalID int64) ([]int, error)

	// ItemActions returns the per-resource-item grants reachable through the
	// principal's roles. The same item may appear once per granting role.
	ItemActions(ctx context.Context, principalID int64) ([]ItemActions, error)

	// ClinicianSpecialties returns the recognized specialty ids the clinician
	// is scheduled for, already restricted to RecognizedSpecialties.
	ClinicianSpecialties(ctx context.Context, clinicianID int64) ([]int, error)
}
