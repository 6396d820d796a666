package service

import (
	"context"
	"time"

	"github.com/okian/scool/internal/domain/types"
)

const pingTimeout = 2 * time.Second

// Health reports liveness and whether the store answers a ping.
func (s *Service) Health(ctx context.Context) types.Health {
	s.mu.RLock()
	b, startedAt, started := s.backend, s.startedAt, s.started
	s.mu.RUnlock()

	h := types.Health{
		Status:    "OK",
		Database:  "disconnected",
		Backend:   "none",
		Timestamp: s.now().UTC(),
	}
	if started {
		h.Uptime = s.now().Sub(startedAt).Seconds()
	}
	if b == nil {
		return h
	}
	h.Backend = b.Kind

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := b.Store.Ping(ctx); err == nil {
		h.Database = "connected"
	}
	return h
}

// DBCheck reports row counts per table.
func (s *Service) DBCheck(ctx context.Context) (types.Counts, error) {
	_, b, err := s.components()
	if err != nil || b == nil {
		return types.Counts{}, unavailable(err)
	}
	counts, err := b.Catalog.Counts(ctx)
	if err != nil {
		return types.Counts{}, err
	}
	if counts.Leaderboard, err = b.Store.Count(ctx); err != nil {
		return types.Counts{}, err
	}
	return counts, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started": s.started,
		"backend": s.backendKind(),
	}
	if !s.started {
		return stats
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	stats["uptimeSeconds"] = s.now().Sub(s.startedAt).Seconds()
	if s.ranking != nil {
		def, maxLimit := s.ranking.Limits()
		stats["defaultLimit"] = def
		stats["maxLimit"] = maxLimit
	}
	if s.queue != nil {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["queueCapacity"] = s.cfg.WriteQueueSize
	}
	if s.backend != nil {
		if n, err := s.backend.Store.Count(ctx); err == nil {
			stats["participants"] = n
		}
	}
	return stats
}
