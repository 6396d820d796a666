package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/scool/internal/domain/ranking"
	"github.com/okian/scool/internal/domain/types"
	"github.com/okian/scool/pkg/metrics"
)

const searchLimit = 5

// SubmitScore commits a score and returns the ranked entry.
func (s *Service) SubmitScore(ctx context.Context, username, name string, score int64) (types.Entry, error) {
	r, _, err := s.components()
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: %w", ranking.ErrStorageUnavailable, err)
	}

	start := time.Now()
	entry, err := r.Submit(ctx, username, name, score)
	metrics.RecordSubmitLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordScoreSubmission(outcome(err))
	return entry, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ranking.ErrInvalidSubmission):
		return metrics.OutcomeInvalid
	case errors.Is(err, ranking.ErrStorageUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeFailed
	}
}

// Standings returns up to limit entries in rank order.
func (s *Service) Standings(ctx context.Context, limit int) ([]types.Entry, error) {
	r, _, err := s.components()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ranking.ErrStorageUnavailable, err)
	}
	return r.Standings(ctx, limit)
}

// Top10 returns the first ten entries.
func (s *Service) Top10(ctx context.Context) ([]types.Entry, error) {
	return s.Standings(ctx, 10)
}

// Rank returns one participant's entry.
func (s *Service) Rank(ctx context.Context, username string) (types.Entry, error) {
	r, _, err := s.components()
	if err != nil {
		return types.Entry{}, fmt.Errorf("%w: %w", ranking.ErrStorageUnavailable, err)
	}
	return r.Rank(ctx, username)
}

// Search returns up to five students followed by up to five subjects
// matching q.
func (s *Service) Search(ctx context.Context, q string) ([]types.SearchResult, error) {
	_, b, err := s.components()
	if err != nil || b == nil {
		return nil, unavailable(err)
	}

	students, err := b.Store.Search(ctx, q, searchLimit)
	if err != nil {
		return nil, err
	}
	subjects, err := b.Catalog.SearchSubjects(ctx, q, searchLimit)
	if err != nil {
		return nil, err
	}

	out := make([]types.SearchResult, 0, len(students)+len(subjects))
	for _, e := range students {
		out = append(out, types.SearchResult{
			Type:        "student",
			Title:       e.Name,
			Description: fmt.Sprintf("Rank #%d, %d points", e.Rank, e.Score),
			Data:        e,
		})
	}
	for _, sub := range subjects {
		out = append(out, types.SearchResult{
			Type:        "subject",
			Title:       sub.Name,
			Description: fmt.Sprintf("Class %d, %d%% complete", sub.Class, sub.Progress),
			Data:        sub,
		})
	}
	return out, nil
}

func unavailable(cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: no store", ranking.ErrStorageUnavailable)
	}
	return fmt.Errorf("%w: %w", ranking.ErrStorageUnavailable, cause)
}
