package repository

import (
	"errors"

	"github.com/okian/scool/internal/domain/types"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound       = types.ErrNotFound
	ErrUnavailable    = types.ErrUnavailable
	ErrConflict       = types.ErrConflict
	ErrInvalidLimit   = errors.New("invalid leaderboard limit")
	ErrUnknownBackend = errors.New("unknown store backend")
)
