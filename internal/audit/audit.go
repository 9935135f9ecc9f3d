package audit

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"clinicore.org/internal/ids"
	"clinicore.org/internal/obs"
)

// Action classifies what the actor did to the target.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
	ActionRead   Action = "read"
)

// Entry is one audit record.
type Entry struct {
	ID          string
	OccurredAt  time.Time
	PrincipalID int64
	Action      Action
	Table       string
	RecordID    int64
	ItemID      int
	Station     string
	Note        string
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context so recorded
// entries can be correlated with request logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Recorder persists audit entries. Recording is strictly best-effort: a
// failed write is logged and swallowed, never returned, so the primary
// operation cannot fail on audit problems.
type Recorder struct {
	db  *sql.DB
	now func() time.Time
}

// RecorderOption configures Recorder behavior.
type RecorderOption func(*Recorder)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder wraps a database handle. A nil handle degrades the recorder to
// log-only mode.
func NewRecorder(db *sql.DB, opts ...RecorderOption) *Recorder {
	r := &Recorder{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record writes one audit entry, filling in id, timestamp and station
// defaults. It never returns an error.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now().UTC()
	}
	if e.Station == "" {
		e.Station = "api"
	}

	fields := map[string]any{
		"audit_id":     e.ID,
		"principal_id": e.PrincipalID,
		"action":       string(e.Action),
		"table":        e.Table,
		"record_id":    e.RecordID,
	}
	if e.ItemID != 0 {
		fields["item_id"] = e.ItemID
	}
	if e.Note != "" {
		fields["note"] = e.Note
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		fields["request_id"] = rid
	}
	obs.LogEvent("audit", fields)

	if r.db == nil {
		return
	}
	_, err := r.db.ExecContext(ctx, `
		insert into audit_log(id, occurred_at, principal_id, action, target_table, record_id, item_id, station, note)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.OccurredAt, e.PrincipalID, string(e.Action), e.Table, e.RecordID, e.ItemID, e.Station, e.Note,
	)
	if err != nil {
		obs.LogEvent("audit_write_failed", map[string]any{
			"audit_id": e.ID,
			"error":    err.Error(),
		})
	}
}
