package auth

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// secret. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidToken indicates a missing, malformed, expired or
	// wrongly-signed session token.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnauthenticated indicates no session was presented where one is
	// required.
	ErrUnauthenticated = errors.New("auth: unauthenticated")

	// ErrForbidden indicates an authenticated principal lacks a required
	// role or item-action grant.
	ErrForbidden = errors.New("auth: forbidden")

	// ErrUnavailable indicates the identity store could not be reached.
	ErrUnavailable = errors.New("auth: dependency unavailable")

	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("auth: not found")
)
