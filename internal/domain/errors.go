package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput covers malformed or disallowed caller input,
	// including an OAuth provider name that is not on the configured allow-list.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict signals a uniqueness violation that survived the store-level retry,
	// e.g. a lost participant-upsert race.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized is returned when identity resolution fails:
	// bad bearer token, expired login state, or a rejected provider exchange.
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)
