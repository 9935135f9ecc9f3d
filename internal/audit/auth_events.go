package audit

import "context"

// AuthEvents adapts a Recorder to the auth service's Auditor contract.
type AuthEvents struct {
	rec *Recorder
}

// NewAuthEvents wraps a Recorder.
func NewAuthEvents(rec *Recorder) *AuthEvents {
	return &AuthEvents{rec: rec}
}

// SessionOpened records a successful login.
func (a *AuthEvents) SessionOpened(ctx context.Context, principalID int64) {
	if a == nil || a.rec == nil {
		return
	}
	a.rec.Record(ctx, Entry{
		PrincipalID: principalID,
		Action:      ActionRead,
		Table:       "login",
		RecordID:    principalID,
		Note:        "session opened",
	})
}

// SessionClosed records an advisory logout. The tokens the client held stay
// cryptographically valid until expiry.
func (a *AuthEvents) SessionClosed(ctx context.Context, principalID int64) {
	if a == nil || a.rec == nil {
		return
	}
	a.rec.Record(ctx, Entry{
		PrincipalID: principalID,
		Action:      ActionRead,
		Table:       "logout",
		RecordID:    principalID,
		Note:        "session closed",
	})
}
