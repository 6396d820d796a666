package types

import "errors"

// Storage-neutral error kinds. Adapters wrap their driver errors with these so
// the domain and HTTP layers can classify failures without importing drivers.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("storage unavailable")
	ErrConflict    = errors.New("already exists")
	// ErrUnauthorized is returned for unknown emails and wrong passwords alike.
	ErrUnauthorized = errors.New("invalid email or password")
)
