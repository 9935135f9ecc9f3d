package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestRecordPersistsEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecorder(db, WithClock(func() time.Time { return at }))

	mock.ExpectExec("insert into audit_log").
		WithArgs(sqlmock.AnyArg(), at, int64(10), "read", "login", int64(10), 0, "api", "session opened").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec.Record(context.Background(), Entry{
		PrincipalID: 10,
		Action:      ActionRead,
		Table:       "login",
		RecordID:    10,
		Note:        "session opened",
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRecordSwallowsWriteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into audit_log").
		WillReturnError(errors.New("relation audit_log does not exist"))

	rec := NewRecorder(db)
	// Must not panic and must not surface the error.
	rec.Record(context.Background(), Entry{PrincipalID: 1, Action: ActionCreate, Table: "patients"})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestNilDatabaseIsLogOnly(t *testing.T) {
	rec := NewRecorder(nil)
	rec.Record(context.Background(), Entry{PrincipalID: 1, Action: ActionModify, Table: "patients"})
}

func TestAuthEventsRecordLoginAndLogout(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into audit_log").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7), "read", "login", int64(7), 0, "api", "session opened").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_log").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7), "read", "logout", int64(7), 0, "api", "session closed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	events := NewAuthEvents(NewRecorder(db))
	events.SessionOpened(context.Background(), 7)
	events.SessionClosed(context.Background(), 7)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestWithRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "  req-123  ")
	if got := requestIDFromContext(ctx); got != "req-123" {
		t.Fatalf("got %q", got)
	}
	if got := requestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	// Blank ids are dropped.
	if got := requestIDFromContext(WithRequestID(context.Background(), "   ")); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
