package model

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist or is
	// not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned on sign-up with an already-registered email.
	// Callers are expected to offer switching to sign-in.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on sign-in with a wrong email or
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrWeakPassword is returned when a password fails the minimum policy.
	ErrWeakPassword = errors.New("password is too weak")
	// ErrNotProvisioned is returned when the backing schema or collection
	// has not been created yet.
	ErrNotProvisioned = errors.New("backend not provisioned")
	// ErrPermissionDenied is returned when the backend rejects an operation
	// for authorization reasons.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrContentRequired is returned when an entry is created without a body.
	ErrContentRequired = errors.New("entry content is required")
	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrProviderAuth is returned when an external identity provider rejects
	// or fails an OAuth sign-in attempt.
	ErrProviderAuth = errors.New("provider authentication failed")
)
