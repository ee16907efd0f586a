package access

import "errors"

var (
	// ErrProfileNotFound indicates the identity has no stored profile yet.
	ErrProfileNotFound = errors.New("access: profile not found")
	// ErrCapabilityMissing indicates a backend procedure is not deployed.
	ErrCapabilityMissing = errors.New("access: backend capability missing")
	// ErrNoIdentity indicates no identity is signed in for the request.
	ErrNoIdentity = errors.New("access: no identity")
)
