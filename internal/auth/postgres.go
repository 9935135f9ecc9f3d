package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var _ IdentityStore = (*PGStore)(nil)

// PGStore implements IdentityStore against the PostgreSQL replica of the
// hospital master data.
type PGStore struct {
	db *sql.DB

	// recognizedList is the RecognizedSpecialties set rendered once as a SQL
	// "in" list. The values are deploy-time constants, never user input.
	recognizedList string
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	ids := make([]string, len(RecognizedSpecialties))
	for i, id := range RecognizedSpecialties {
		ids[i] = strconv.Itoa(id)
	}
	return &PGStore{db: db, recognizedList: strings.Join(ids, ",")}
}

func (s *PGStore) FindCredential(ctx context.Context, username string) (*EmployeeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		select e.id, e.username, e.first_name, e.last_name, coalesce(c.id, 0), e.password_hash
		from employees e
		left join clinicians c on c.employee_id = e.id
		where e.username = $1`, username)
	var rec EmployeeRecord
	if err := row.Scan(&rec.PrincipalID, &rec.Username, &rec.FirstName, &rec.LastName, &rec.ClinicianID, &rec.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *PGStore) FindEmployee(ctx context.Context, principalID int64) (*EmployeeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		select e.id, e.username, e.first_name, e.last_name, coalesce(c.id, 0)
		from employees e
		left join clinicians c on c.employee_id = e.id
		where e.id = $1`, principalID)
	var rec EmployeeRecord
	if err := row.Scan(&rec.PrincipalID, &rec.Username, &rec.FirstName, &rec.LastName, &rec.ClinicianID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *PGStore) Roles(ctx context.Context, principalID int64) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id
		from user_roles ur
		join roles r on r.id = ur.role_id
		where ur.employee_id = $1`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		roles = append(roles, id)
	}
	return roles, rows.Err()
}

func (s *PGStore) Permissions(ctx context.Context, principalID int64) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		select distinct rp.permission_id
		from role_permissions rp
		join user_roles ur on ur.role_id = rp.role_id
		where ur.employee_id = $1`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		perms = append(perms, id)
	}
	return perms, rows.Err()
}

func (s *PGStore) ItemActions(ctx context.Context, principalID int64) ([]ItemActions, error) {
	rows, err := s.db.QueryContext(ctx, `
		select distinct ri.item_id, ri.can_create, ri.can_update, ri.can_delete, ri.can_read
		from role_items ri
		join user_roles ur on ur.role_id = ri.role_id
		where ur.employee_id = $1`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []ItemActions
	for rows.Next() {
		var a ItemActions
		if err := rows.Scan(&a.ItemID, &a.Create, &a.Update, &a.Delete, &a.Read); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (s *PGStore) ClinicianSpecialties(ctx context.Context, clinicianID int64) ([]int, error) {
	query := fmt.Sprintf(`
		select distinct s.id
		from clinician_schedule cs
		join services s on s.id = cs.service_id
		where cs.clinician_id = $1
		and s.id in (%s)`, s.recognizedList)
	rows, err := s.db.QueryContext(ctx, query, clinicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specialties []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		specialties = append(specialties, id)
	}
	return specialties, rows.Err()
}
