package repository

import "time"

// TreapOption applies a configuration option to the TreapStore.
type TreapOption func(*TreapStore)

// WithClock overrides the clock used for updated_at.
func WithClock(now func() time.Time) TreapOption {
	return func(s *TreapStore) {
		if now != nil {
			s.now = now
		}
	}
}

// SQLOption applies a configuration option to the SQL-backed stores.
type SQLOption func(*sqlOptions)

type sqlOptions struct {
	maxConns int32
	clock    func() time.Time
}

func defaultSQLOptions() sqlOptions {
	return sqlOptions{maxConns: 10, clock: time.Now}
}

// WithMaxConns caps the Postgres pool size. SQLite always uses one connection.
func WithMaxConns(n int) SQLOption {
	return func(o *sqlOptions) {
		if n > 0 {
			o.maxConns = int32(n)
		}
	}
}

// WithSQLClock overrides the clock used for updated_at and created_at.
func WithSQLClock(now func() time.Time) SQLOption {
	return func(o *sqlOptions) {
		if now != nil {
			o.clock = now
		}
	}
}
