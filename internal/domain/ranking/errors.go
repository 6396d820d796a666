package ranking

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/scool/internal/domain/types"
)

// Error kinds returned by the Service. Every returned error wraps exactly one
// of them; the original cause stays reachable through errors.Is/As.
var (
	// ErrInvalidSubmission: input rejected before touching storage.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrStorageUnavailable: no store, no connection, or the store timed out.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrSubmitFailed: the transaction failed and was rolled back. Retrying is safe.
	ErrSubmitFailed = errors.New("score submission failed")
	// ErrNotFound: the participant is not on the leaderboard.
	ErrNotFound = errors.New("participant not found")
)

func invalid(op, msg string) error {
	return fmt.Errorf("%s: %w: %s", op, ErrInvalidSubmission, msg)
}

// classify maps a storage error onto the service's error kinds.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, types.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrSubmitFailed, err)
	}
}
