package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "clinicore"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	// DefaultAccessTTL applies when no access lifetime is configured.
	DefaultAccessTTL = 4 * time.Hour

	// RefreshTTL is fixed and independent of the access lifetime. Refreshing
	// replaces the access token only; the refresh token runs to its own
	// expiry.
	RefreshTTL = 7 * 24 * time.Hour
)

// AccessClaims is the minimal claim set carried by access tokens: principal
// id, clinician id, clinician flag and role ids. Role names, permissions and
// the item-action matrix stay server-side to bound token size.
type AccessClaims struct {
	ClinicianID int64  `json:"cid,omitempty"`
	IsClinician bool   `json:"clin"`
	Roles       []int  `json:"roles"`
	TokenType   string `json:"token_type"`
	jwt.RegisteredClaims
}

// PrincipalID returns the numeric subject of the claims.
func (c *AccessClaims) PrincipalID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Subject), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

type refreshClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the two session token classes with distinct
// secrets so that a refresh token never validates as an access token and vice
// versa.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	now           func() time.Time
}

// IssuerOption configures TokenIssuer behavior.
type IssuerOption func(*TokenIssuer) error

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) IssuerOption {
	return func(t *TokenIssuer) error {
		if ttl > 0 {
			t.accessTTL = ttl
		}
		return nil
	}
}

// WithIssuerClock overrides the time source (useful for tests).
func WithIssuerClock(fn func() time.Time) IssuerOption {
	return func(t *TokenIssuer) error {
		if fn != nil {
			t.now = fn
		}
		return nil
	}
}

// NewTokenIssuer constructs a TokenIssuer from the two signing secrets.
func NewTokenIssuer(accessSecret, refreshSecret string, opts ...IssuerOption) (*TokenIssuer, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: both access and refresh secrets are required")
	}
	if subtle.ConstantTimeCompare([]byte(accessSecret), []byte(refreshSecret)) == 1 {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	t := &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     DefaultAccessTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AccessTTL returns the configured access token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

// IssueSession signs a fresh access/refresh token pair for the principal.
func (t *TokenIssuer) IssueSession(p Principal) (Session, error) {
	now := t.now().UTC()
	access, accessExp, err := t.issueAccess(p, now)
	if err != nil {
		return Session{}, err
	}
	refreshExp := now.Add(RefreshTTL)
	refresh := refreshClaims{
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(t.refreshSecret)
	if err != nil {
		return Session{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return Session{
		AccessToken:      access,
		RefreshToken:     signed,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess signs a fresh access token only, leaving any previously issued
// refresh token untouched.
func (t *TokenIssuer) IssueAccess(p Principal) (string, time.Time, error) {
	return t.issueAccess(p, t.now().UTC())
}

func (t *TokenIssuer) issueAccess(p Principal, now time.Time) (string, time.Time, error) {
	if p.ID <= 0 {
		return "", time.Time{}, errors.New("principal id is required")
	}
	exp := now.Add(t.accessTTL)
	claims := AccessClaims{
		ClinicianID: p.ClinicianID,
		IsClinician: p.IsClinician,
		Roles:       p.Roles,
		TokenType:   tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// VerifyAccess validates an access token against the access secret and
// returns its claims.
func (t *TokenIssuer) VerifyAccess(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.accessSecret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != issuer || claims.TokenType != tokenTypeAccess {
		return nil, ErrInvalidToken
	}
	if _, err := claims.PrincipalID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token against the refresh secret and
// returns the principal id it was issued to.
func (t *TokenIssuer) VerifyRefresh(token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &refreshClaims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.refreshSecret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return 0, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*refreshClaims)
	if !ok || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	if claims.Issuer != issuer || claims.TokenType != tokenTypeRefresh {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
