// Package service wires storage, the ranking service and the write queue
// together and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/okian/scool/internal/adapters/mq/queue"
	"github.com/okian/scool/internal/adapters/mq/worker"
	"github.com/okian/scool/internal/adapters/repository"
	"github.com/okian/scool/internal/config"
	"github.com/okian/scool/internal/domain/ranking"
	"github.com/okian/scool/pkg/logger"
	"github.com/okian/scool/pkg/metrics"
)

const writerStopTimeout = 5 * time.Second

type job struct {
	name  string
	every time.Duration
	fn    func()
}

// Service implements the API dependencies for the SCool backend.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	logger logger.Logger
	now    func() time.Time

	// Core components
	backend *repository.Backend
	ranking *ranking.Service
	queue   *queue.InMemoryQueue
	writer  *worker.InMemoryWorker

	writerCancel context.CancelFunc
	writerDone   chan struct{}

	scheduler *gocron.Scheduler
	jobs      []job

	// State
	started   bool
	startedAt time.Time
}

// New constructs a new Service. Nothing is opened until Start.
func New(opts ...Option) *Service {
	s := &Service{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens storage, builds the ranking service, seeds demo data and starts
// the maintenance scheduler. When the store cannot be opened and the config
// does not require it, Start succeeds in degraded mode.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.cfg == nil {
		s.cfg = config.New(ctx)
	}
	cfg := s.cfg

	s.logger.Info(ctx, "starting scool service...", logger.String("store", cfg.Store))

	if s.backend == nil {
		b, err := repository.Open(ctx, repository.Config{
			Kind:        cfg.Store,
			DatabaseURL: cfg.DatabaseURL,
			SQLitePath:  cfg.SQLitePath,
			MaxConns:    cfg.DBMaxConns,
		})
		switch {
		case err == nil:
			s.backend = b
		case cfg.RequireStore:
			return fmt.Errorf("%w: %w", ErrStoreRequired, err)
		default:
			metrics.RecordErrorByComponent("service", "store_open")
			s.logger.Warn(ctx, "store unavailable, running degraded",
				logger.String("store", cfg.Store),
				logger.String("database_url", logger.MaskURL(cfg.DatabaseURL)),
				logger.Error(err),
			)
		}
	}

	opts := []ranking.Option{
		ranking.WithTimeout(cfg.SubmitTimeout()),
		ranking.WithLimits(cfg.DefaultLeaderboardLimit, cfg.MaxLeaderboardLimit),
	}
	var store ranking.Store
	if s.backend != nil {
		store = s.backend.Store
		if cfg.WriteQueueSize > 0 {
			s.startWriter(cfg.WriteQueueSize)
			opts = append(opts, ranking.WithWriter(queue.NewWriter(s.queue)))
		}
	}
	s.ranking = ranking.New(store, opts...)

	if s.backend != nil && cfg.SeedDemoData {
		if err := s.seed(ctx); err != nil {
			s.logger.Warn(ctx, "demo data not seeded", logger.Error(err))
		}
	}

	if err := s.startScheduler(cfg.StatsInterval()); err != nil {
		s.stopLocked(ctx)
		return err
	}

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "scool service started",
		logger.String("backend", s.backendKind()),
		logger.Int("writeQueue", cfg.WriteQueueSize),
		logger.Int("jobs", len(s.jobs)+1),
	)
	return nil
}

func (s *Service) startWriter(capacity int) {
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(capacity))
	s.writer = worker.NewInMemoryWorker(s.queue, s.backend.Store,
		worker.WithLogger(s.logger.Named("writer")),
	)
	ctx, cancel := context.WithCancel(context.Background())
	s.writerCancel = cancel
	s.writerDone = make(chan struct{})
	go func() {
		defer close(s.writerDone)
		s.writer.Run(ctx)
	}()
}

func (s *Service) startScheduler(statsEvery time.Duration) error {
	s.scheduler = gocron.NewScheduler(time.UTC)
	s.scheduler.SingletonModeAll()

	b := s.backend
	all := append([]job{
		{name: "leaderboard_gauges", every: statsEvery, fn: func() { s.refreshGauges(b) }},
	}, s.jobs...)
	for _, j := range all {
		if _, err := s.scheduler.Every(j.every).Tag(j.name).Do(j.fn); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop shuts down the scheduler, drains the write queue and closes storage.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping scool service...")
	s.stopLocked(ctx)
	s.started = false
	s.logger.Info(ctx, "scool service stopped")
}

func (s *Service) stopLocked(ctx context.Context) {
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}

	if s.queue != nil {
		_ = s.queue.Close()
		select {
		case <-s.writerDone:
		case <-time.After(writerStopTimeout):
			s.logger.Warn(ctx, "writer did not drain in time")
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			_ = s.writer.Shutdown(sctx)
			cancel()
		}
		s.writerCancel()
		s.queue, s.writer = nil, nil
	}

	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Warn(ctx, "closing store", logger.Error(err))
		}
		s.backend = nil
	}
	metrics.UpdateStoreUp(false)
}

// components returns a consistent snapshot for request handlers.
func (s *Service) components() (*ranking.Service, *repository.Backend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.ranking, s.backend, nil
}

func (s *Service) backendKind() string {
	if s.backend == nil {
		return "none"
	}
	return s.backend.Kind
}

// refreshGauges runs on the scheduler and must not take s.mu: Stop holds it
// while waiting for running jobs.
func (s *Service) refreshGauges(b *repository.Backend) {
	if b == nil {
		metrics.UpdateStoreUp(false)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.Store.Ping(ctx); err != nil {
		metrics.UpdateStoreUp(false)
		s.logger.Warn(ctx, "store ping failed", logger.Error(err))
		return
	}
	metrics.UpdateStoreUp(true)
	if n, err := b.Store.Count(ctx); err == nil {
		metrics.UpdateParticipants(n)
	}
}

// seed inserts demo rows when the leaderboard is empty.
func (s *Service) seed(ctx context.Context) error {
	n, err := s.backend.Store.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, st := range repository.DemoStudents {
		if _, err := s.ranking.Submit(ctx, st.Username, st.Name, st.Score); err != nil {
			return fmt.Errorf("seed %s: %w", st.Username, err)
		}
	}
	for _, sub := range repository.DemoSubjects {
		if _, err := s.backend.Catalog.UpsertSubject(ctx, sub.Name, sub.Class, sub.Progress); err != nil {
			return fmt.Errorf("seed subject %s/%d: %w", sub.Name, sub.Class, err)
		}
	}
	s.logger.Info(ctx, "demo data seeded",
		logger.Int("students", len(repository.DemoStudents)),
		logger.Int("subjects", len(repository.DemoSubjects)),
	)
	return nil
}
