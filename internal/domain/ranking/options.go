package ranking

import "time"

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds every mutating call. Expiry cancels the store
// transaction, which rolls back.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLimits sets the default and maximum standings page sizes.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

// WithWriter routes Submit and Enroll through w instead of the store,
// e.g. a single-writer queue.
func WithWriter(w Writer) Option {
	return func(s *Service) {
		if w != nil && s.store != nil {
			s.writer = w
		}
	}
}
