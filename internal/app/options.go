package service

import (
	"time"

	"github.com/okian/scool/internal/adapters/repository"
	"github.com/okian/scool/internal/config"
	"github.com/okian/scool/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the process configuration. Defaults from config.New apply
// otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBackend uses b instead of opening the configured store. The service
// takes ownership and closes it on Stop.
func WithBackend(b *repository.Backend) Option {
	return func(s *Service) {
		s.backend = b
	}
}

// WithJob registers fn to run every interval on the maintenance scheduler.
func WithJob(name string, every time.Duration, fn func()) Option {
	return func(s *Service) {
		if fn != nil && every > 0 {
			s.jobs = append(s.jobs, job{name: name, every: every, fn: fn})
		}
	}
}

// WithClock overrides the time source used for uptime and health timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
