package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Auditor receives best-effort notifications of auth events. Implementations
// must never fail the calling operation.
type Auditor interface {
	SessionOpened(ctx context.Context, principalID int64)
	SessionClosed(ctx context.Context, principalID int64)
}

// Service implements the authentication flows: credential login, principal
// assembly, token refresh, access-token authentication and advisory logout.
//
// The service keeps no per-session state. Tokens are self-contained, and the
// full principal is re-fetched from the identity store on every authenticated
// request so that role or specialty changes take effect immediately.
type Service struct {
	store  IdentityStore
	tokens *TokenIssuer
	audit  Auditor
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithAuditor attaches a best-effort audit sink.
func WithAuditor(a Auditor) ServiceOption {
	return func(s *Service) error {
		s.audit = a
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs a Service over the identity store and token issuer.
func NewService(store IdentityStore, tokens *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: identity store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	svc := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Tokens exposes the underlying issuer.
func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// Login verifies the credential pair and issues a fresh session.
//
// Unknown identifier and wrong password both return ErrInvalidCredentials; a
// dummy hash comparison on the unknown-identifier path keeps the two failures
// in the same latency class. Identity-store failures surface as
// ErrUnavailable: a principal cannot be authenticated with unknown roles.
func (s *Service) Login(ctx context.Context, username, password string) (Session, Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, Principal{}, ErrInvalidCredentials
	}

	rec, err := s.store.FindCredential(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			compareAgainstDummy(password)
			return Session{}, Principal{}, ErrInvalidCredentials
		}
		return Session{}, Principal{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := VerifyPassword(rec.PasswordHash, password); err != nil {
		return Session{}, Principal{}, ErrInvalidCredentials
	}

	principal, err := s.assemble(ctx, rec)
	if err != nil {
		return Session{}, Principal{}, err
	}
	session, err := s.tokens.IssueSession(principal)
	if err != nil {
		return Session{}, Principal{}, err
	}
	if s.audit != nil {
		s.audit.SessionOpened(ctx, principal.ID)
	}
	return session, principal, nil
}

// Principal re-derives the full principal for an already-verified identity.
func (s *Service) Principal(ctx context.Context, principalID int64) (Principal, error) {
	rec, err := s.store.FindEmployee(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.assemble(ctx, rec)
}

// assemble merges the four independent grant lookups into one immutable
// Principal. Empty lookup results are empty sets, never errors: a principal
// with zero roles is valid.
func (s *Service) assemble(ctx context.Context, rec *EmployeeRecord) (Principal, error) {
	roles, err := s.store.Roles(ctx, rec.PrincipalID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: roles: %v", ErrUnavailable, err)
	}
	perms, err := s.store.Permissions(ctx, rec.PrincipalID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: permissions: %v", ErrUnavailable, err)
	}
	itemRows, err := s.store.ItemActions(ctx, rec.PrincipalID)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: item actions: %v", ErrUnavailable, err)
	}

	// The same item may be granted by several roles; grants accumulate.
	items := make(map[int]ItemActions, len(itemRows))
	for _, row := range itemRows {
		merged := items[row.ItemID]
		merged.ItemID = row.ItemID
		merged.Create = merged.Create || row.Create
		merged.Update = merged.Update || row.Update
		merged.Delete = merged.Delete || row.Delete
		merged.Read = merged.Read || row.Read
		items[row.ItemID] = merged
	}

	isClinician := rec.ClinicianID > 0
	var specialties []int
	if isClinician {
		specialties, err = s.clinicianSpecialties(ctx, rec.ClinicianID)
		if err != nil {
			return Principal{}, fmt.Errorf("%w: specialties: %v", ErrUnavailable, err)
		}
	}

	sort.Ints(roles)
	sort.Ints(perms)
	return Principal{
		ID:          rec.PrincipalID,
		Username:    rec.Username,
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		IsClinician: isClinician,
		ClinicianID: rec.ClinicianID,
		Roles:       roles,
		Permissions: perms,
		ItemActions: items,
		Specialties: specialties,
	}, nil
}

// clinicianSpecialties fetches the clinician's scheduled services restricted
// to the recognized whitelist. The store already filters server-side; the
// intersection here keeps the closed set authoritative regardless of backend.
func (s *Service) clinicianSpecialties(ctx context.Context, clinicianID int64) ([]int, error) {
	ids, err := s.store.ClinicianSpecialties(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	var filtered []int
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if !IsRecognizedSpecialty(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		filtered = append(filtered, id)
	}
	sort.Ints(filtered)
	return filtered, nil
}

// Refresh validates a refresh token and issues a fresh access token. The
// principal is re-derived from the store, not from stale claims, so role and
// specialty changes since issuance are reflected. The presented refresh token
// remains valid until its own expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	principalID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	principal, err := s.Principal(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", time.Time{}, ErrInvalidToken
		}
		return "", time.Time{}, err
	}
	return s.tokens.IssueAccess(principal)
}

// Authenticate validates an access token and re-derives the full principal.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	principalID, err := claims.PrincipalID()
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	principal, err := s.Principal(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	return principal, nil
}

// Logout records the session close as an audit event. Already-issued tokens
// stay cryptographically valid; clearing client-held tokens is the transport
// layer's job. Logout never fails from the caller's perspective.
func (s *Service) Logout(ctx context.Context, principalID int64) {
	if s.audit != nil {
		s.audit.SessionClosed(ctx, principalID)
	}
}
