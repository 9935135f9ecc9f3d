package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func TestPGStoreFindCredential(t *testing.T) {
	store, mock := newMockStore(t)

	cols := []string{"id", "username", "first_name", "last_name", "clinician_id", "password_hash"}
	mock.ExpectQuery("from employees e").
		WithArgs("doc1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(10, "doc1", "Maria", "Quispe", 42, "$2a$10$hash"))

	rec, err := store.FindCredential(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("FindCredential: %v", err)
	}
	if rec.PrincipalID != 10 || rec.ClinicianID != 42 || rec.PasswordHash == "" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGStoreFindCredentialUnknown(t *testing.T) {
	store, mock := newMockStore(t)

	cols := []string{"id", "username", "first_name", "last_name", "clinician_id", "password_hash"}
	mock.ExpectQuery("from employees e").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(cols))

	if _, err := store.FindCredential(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreRoles(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from user_roles ur").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(RoleTriage).AddRow(RolePrograms))

	roles, err := store.Roles(context.Background(), 10)
	if err != nil {
		t.Fatalf("Roles: %v", err)
	}
	if len(roles) != 2 || roles[0] != RoleTriage || roles[1] != RolePrograms {
		t.Fatalf("unexpected roles: %v", roles)
	}
}

func TestPGStoreItemActions(t *testing.T) {
	store, mock := newMockStore(t)

	cols := []string{"item_id", "can_create", "can_update", "can_delete", "can_read"}
	mock.ExpectQuery("from role_items ri").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(ItemPatients, false, false, false, true).
			AddRow(ItemTriage, true, true, false, true))

	actions, err := store.ItemActions(context.Background(), 10)
	if err != nil {
		t.Fatalf("ItemActions: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("unexpected actions: %+v", actions)
	}
	if actions[0].ItemID != ItemPatients || !actions[0].Read || actions[0].Create {
		t.Fatalf("unexpected first grant: %+v", actions[0])
	}
}

func TestPGStoreClinicianSpecialtiesUsesRecognizedList(t *testing.T) {
	store, mock := newMockStore(t)

	// The recognized-specialty filter is baked into the query itself.
	mock.ExpectQuery("from clinician_schedule cs").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(145).AddRow(230))

	for _, id := range RecognizedSpecialties {
		if !strings.Contains(store.recognizedList, strconv.Itoa(id)) {
			t.Fatalf("recognized list missing %d: %s", id, store.recognizedList)
		}
	}

	ids, err := store.ClinicianSpecialties(context.Background(), 42)
	if err != nil {
		t.Fatalf("ClinicianSpecialties: %v", err)
	}
	if len(ids) != 2 || ids[0] != 145 || ids[1] != 230 {
		t.Fatalf("unexpected specialties: %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGStoreQueryErrorPassesThrough(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from user_roles ur").
		WithArgs(int64(10)).
		WillReturnError(errors.New("connection reset"))

	if _, err := store.Roles(context.Background(), 10); err == nil {
		t.Fatal("expected query error to pass through")
	}
}
