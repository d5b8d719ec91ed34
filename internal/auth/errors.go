package auth

import "errors"

var (
	// ErrNoSession is returned when the request carries no session cookie.
	ErrNoSession = errors.New("no session token provided")

	// ErrInvalidSession is returned for expired, malformed, or revoked tokens.
	ErrInvalidSession = errors.New("invalid session token")

	// ErrInvalidCredentials is returned on a failed email/password login.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidIDToken is returned when a Google ID token fails verification.
	ErrInvalidIDToken = errors.New("invalid ID token")

	// ErrEmailNotVerified is returned when the Google account email is unverified.
	ErrEmailNotVerified = errors.New("email not verified")
)
