package core

import "errors"

var (
	// ErrTokenNotFound is returned when a pairing token is unknown or already used.
	ErrTokenNotFound = errors.New("pairing token not found")
	// ErrTokenExpired is returned when a pairing token's lifetime has elapsed.
	ErrTokenExpired = errors.New("pairing token expired")
	// ErrTokenForbidden is returned when a token is redeemed by someone other
	// than the owner it was issued to.
	ErrTokenForbidden = errors.New("pairing token issued to a different owner")
	// ErrPolicyMissing is returned when a tenant has no configuration. The
	// pipeline treats such tenants as inactive.
	ErrPolicyMissing = errors.New("tenant policy not found")
	// ErrUnknownPolicyMode is returned for a policy mode outside the known set.
	ErrUnknownPolicyMode = errors.New("unknown policy mode")
)
