package loadtest

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrStatus    = errors.New("unexpected status")
	ErrInvariant = errors.New("standings invariant violated")
	ErrMismatch  = errors.New("standings disagree with submissions")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d: %s", ErrStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }
