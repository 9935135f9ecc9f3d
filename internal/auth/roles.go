package auth

// Role identifiers assigned by the hospital master system. The numeric values
// are fixed there; this service only interprets them.
const (
	RoleAdministrator   = 1
	RoleReception       = 52
	RoleSupervisor      = 79
	RolePatientViewer   = 94
	RoleTriage          = 101
	RoleClinicPhysician = 149
	RolePrograms        = 154
	RoleITOperations    = 195
)

// Resource items guarded by per-item action grants.
const (
	ItemPatients     = 101
	ItemAppointments = 102
	ItemEncounters   = 103
	ItemTriage       = 1303
)

// broadAccessRoles see every specialty-scoped record without filtering.
var broadAccessRoles = map[int]struct{}{
	RoleAdministrator:   {},
	RoleReception:       {},
	RoleSupervisor:      {},
	RolePatientViewer:   {},
	RoleClinicPhysician: {},
	RoleITOperations:    {},
}

// RecognizedSpecialties is the closed set of clinical-service identifiers that
// participate in specialty scoping. Services outside this set are not subject
// to the visibility filter.
var RecognizedSpecialties = []int{145, 149, 230, 312, 346, 347, 358, 367, 407, 439}

var recognizedSpecialtySet = func() map[int]struct{} {
	set := make(map[int]struct{}, len(RecognizedSpecialties))
	for _, id := range RecognizedSpecialties {
		set[id] = struct{}{}
	}
	return set
}()

// IsRecognizedSpecialty reports whether a service id participates in
// specialty scoping.
func IsRecognizedSpecialty(id int) bool {
	_, ok := recognizedSpecialtySet[id]
	return ok
}
