package queue

import (
	"errors"
	"fmt"

	"github.com/okian/scool/internal/domain/types"
)

// Sentinel kinds for queue errors. Both read as storage unavailability to
// callers of the ranking service.
var (
	ErrFull    = fmt.Errorf("write queue full: %w", types.ErrUnavailable)
	ErrClosed  = fmt.Errorf("write queue closed: %w", types.ErrUnavailable)
	ErrNoReply = errors.New("write dropped without a result")
)
