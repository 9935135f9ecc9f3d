package auth

import "context"

// CompileScope derives the per-request data-visibility scope for the
// principal. It is evaluated once after authentication and the returned
// descriptor is reused by every downstream query in the request.
//
// Branches, in order:
//
//  1. any broad-access role: unrestricted, no lookup performed;
//  2. clinician holding the programs role: visibility limited to the
//     clinician's recognized specialties AND to records the clinician owns;
//  3. plain clinician: visibility limited to the clinician's recognized
//     specialties;
//  4. otherwise: no specialty-scoped data is visible.
//
// A specialty-lookup failure never blocks the request: the scope degrades
// fail-closed to the empty set and the error is returned alongside it for the
// caller to log.
func (s *Service) CompileScope(ctx context.Context, p Principal) (AuthorizationScope, error) {
	if p.HasBroadAccess() {
		return AuthorizationScope{Unrestricted: true}, nil
	}

	if p.IsClinician && p.ClinicianID > 0 {
		ids, err := s.clinicianSpecialties(ctx, p.ClinicianID)
		if err != nil {
			return AuthorizationScope{}, err
		}
		if len(ids) == 0 {
			return AuthorizationScope{}, nil
		}
		scope := AuthorizationScope{SpecialtyIDs: ids}
		if p.HasRole(RolePrograms) {
			// Program clinicians additionally see only their own records.
			scope.OwnerClinicianID = p.ClinicianID
		}
		return scope, nil
	}

	return AuthorizationScope{}, nil
}
