// Package ranking implements the leaderboard ranking service: score submission
// with an atomic full rank recompute, and rank-ordered standings.
//
// The service owns no storage. It validates input, bounds each call with a
// timeout and classifies storage failures into the error kinds declared in
// errors.go. Serialisation of the recompute pass is the Store's contract.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/scool/internal/domain/types"
)

// Defaults used when options are not supplied.
const (
	DefaultLimit   = 20
	DefaultMax     = 100
	DefaultTimeout = 5 * time.Second
)

// Store is the storage contract the service depends on.
//
// Submit must, as one atomic unit, upsert the entry (rank set to
// types.ProvisionalRank), reassign ranks 1..N to every entry ordered by
// score DESC then username ASC, and return the committed entry. Concurrent
// Submit calls must be serialised so no caller observes a partial recompute.
// Enroll behaves like Submit but only inserts a zero-score entry when the
// username is absent.
type Store interface {
	Submit(ctx context.Context, username, name string, score int64) (types.Entry, error)
	Enroll(ctx context.Context, username, name string) (types.Entry, error)
	Standings(ctx context.Context, limit int) ([]types.Entry, error)
	Rank(ctx context.Context, username string) (types.Entry, error)
}

// Writer is the mutating half of Store. A Writer may be placed in front of
// the store to funnel all writes through a single goroutine.
type Writer interface {
	Submit(ctx context.Context, username, name string, score int64) (types.Entry, error)
	Enroll(ctx context.Context, username, name string) (types.Entry, error)
}

// Service is the leaderboard ranking service.
type Service struct {
	store        Store
	writer       Writer
	timeout      time.Duration
	defaultLimit int
	maxLimit     int
}

// New constructs a Service over store. A nil store yields a service whose
// every operation fails with ErrStorageUnavailable.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		timeout:      DefaultTimeout,
		defaultLimit: DefaultLimit,
		maxLimit:     DefaultMax,
	}
	if store != nil {
		s.writer = store
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// SubmitScore upserts username's score, recomputes every rank and returns the
// committed rank.
func (s *Service) SubmitScore(ctx context.Context, username, displayName string, score int64) (int, error) {
	entry, err := s.Submit(ctx, username, displayName, score)
	if err != nil {
		return 0, err
	}
	return entry.Rank, nil
}

// Submit is SubmitScore returning the whole committed entry.
func (s *Service) Submit(ctx context.Context, username, displayName string, score int64) (types.Entry, error) {
	const op = "ranking.submit"
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	switch {
	case username == "":
		return types.Entry{}, invalid(op, "username is required")
	case displayName == "":
		return types.Entry{}, invalid(op, "name is required")
	case score < 0:
		return types.Entry{}, invalid(op, "score must be a non-negative integer")
	}
	if s.writer == nil {
		return types.Entry{}, fmt.Errorf("%s: %w", op, ErrStorageUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := s.writer.Submit(ctx, username, displayName, score)
	if err != nil {
		return types.Entry{}, classify(op, err)
	}
	return entry, nil
}

// Enroll adds username with a zero score when it is not on the leaderboard yet
// and returns its current entry either way.
func (s *Service) Enroll(ctx context.Context, username, displayName string) (types.Entry, error) {
	const op = "ranking.enroll"
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	if username == "" {
		return types.Entry{}, invalid(op, "username is required")
	}
	if displayName == "" {
		displayName = username
	}
	if s.writer == nil {
		return types.Entry{}, fmt.Errorf("%s: %w", op, ErrStorageUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := s.writer.Enroll(ctx, username, displayName)
	if err != nil {
		return types.Entry{}, classify(op, err)
	}
	return entry, nil
}

// Standings returns up to limit entries ordered by rank ascending. A limit of
// zero or less selects the default page size; limits above the maximum are
// clamped.
func (s *Service) Standings(ctx context.Context, limit int) ([]types.Entry, error) {
	const op = "ranking.standings"
	if s.store == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrStorageUnavailable)
	}
	entries, err := s.store.Standings(ctx, s.clamp(limit))
	if err != nil {
		return nil, classify(op, err)
	}
	return entries, nil
}

// Rank returns a single participant's entry.
func (s *Service) Rank(ctx context.Context, username string) (types.Entry, error) {
	const op = "ranking.rank"
	username = strings.TrimSpace(username)
	if username == "" {
		return types.Entry{}, invalid(op, "username is required")
	}
	if s.store == nil {
		return types.Entry{}, fmt.Errorf("%s: %w", op, ErrStorageUnavailable)
	}
	entry, err := s.store.Rank(ctx, username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.Entry{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return types.Entry{}, classify(op, err)
	}
	return entry, nil
}

// Limits reports the default and maximum standings page sizes.
func (s *Service) Limits() (defaultLimit, maxLimit int) {
	return s.defaultLimit, s.maxLimit
}

func (s *Service) clamp(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultLimit
	case limit > s.maxLimit:
		return s.maxLimit
	default:
		return limit
	}
}
