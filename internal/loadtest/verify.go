package loadtest

import (
	"fmt"
	"slices"

	"github.com/okian/scool/internal/domain/types"
)

// Verify checks that entries form a dense ranking 1..n ordered by score
// descending and username ascending.
func Verify(entries []types.Entry) error {
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: position %d (%s) has rank %d", ErrInvariant, i+1, e.Username, e.Rank)
		}
		if i == 0 {
			continue
		}
		prev := entries[i-1]
		switch {
		case prev.Score < e.Score:
			return fmt.Errorf("%w: %s (%d) ranked above higher score %s (%d)",
				ErrInvariant, prev.Username, prev.Score, e.Username, e.Score)
		case prev.Score == e.Score && prev.Username >= e.Username:
			return fmt.Errorf("%w: tie between %s and %s not ordered by username",
				ErrInvariant, prev.Username, e.Username)
		}
	}
	return nil
}

// VerifyScores checks that every entry whose username appears in submitted
// shows one of the scores sent for it. Concurrent resubmissions may commit in
// any order, so any of them is acceptable.
func VerifyScores(entries []types.Entry, submitted map[string][]int64) error {
	for _, e := range entries {
		scores, ok := submitted[e.Username]
		if ok && !slices.Contains(scores, e.Score) {
			return fmt.Errorf("%w: %s has %d, submitted %v", ErrMismatch, e.Username, e.Score, scores)
		}
	}
	return nil
}
