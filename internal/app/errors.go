package service

import "errors"

// Service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrStoreRequired = errors.New("store required but unavailable")
)
