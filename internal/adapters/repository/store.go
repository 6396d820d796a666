// Package repository implements leaderboard and catalog storage: an in-memory
// treap, SQLite through sqlx, and PostgreSQL through pgx.
package repository

import (
	"context"

	"github.com/okian/scool/internal/domain/types"
)

// Entry represents a leaderboard row.
type Entry = types.Entry

// Store provides read/write access to the ranking state. It satisfies
// ranking.Store: Submit and Enroll upsert and recompute every rank as one
// serialised, atomic unit.
type Store interface {
	Submit(ctx context.Context, username, name string, score int64) (Entry, error)
	Enroll(ctx context.Context, username, name string) (Entry, error)

	// Standings returns up to limit entries ordered by rank ascending.
	Standings(ctx context.Context, limit int) ([]Entry, error)
	// Rank returns ErrNotFound if the username is unknown.
	Rank(ctx context.Context, username string) (Entry, error)
	// Search matches q case-insensitively against username and name.
	Search(ctx context.Context, q string, limit int) ([]Entry, error)
	Count(ctx context.Context) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// Catalog stores the non-ranking tables: subjects and users.
type Catalog interface {
	Subjects(ctx context.Context, class int) ([]types.Subject, error)
	UpsertSubject(ctx context.Context, name string, class, progress int) (types.Subject, error)
	// EnsureSubjects inserts zero-progress rows for names missing in class.
	EnsureSubjects(ctx context.Context, class int, names []string) error
	SearchSubjects(ctx context.Context, q string, limit int) ([]types.Subject, error)

	// CreateUser returns ErrConflict when the email or username is taken.
	CreateUser(ctx context.Context, u types.User) (types.User, error)
	UserByEmail(ctx context.Context, email string) (types.User, error)
	UserByID(ctx context.Context, id int64) (types.User, error)

	// Counts fills the Subjects and Users fields.
	Counts(ctx context.Context) (types.Counts, error)
}
