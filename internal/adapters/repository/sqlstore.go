package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/okian/scool/internal/domain/types"
	"github.com/okian/scool/pkg/metrics"
)

const sqliteConstraintUnique = 2067

const (
	sqliteUpsert = `INSERT INTO leaderboard (username, name, score, "rank", created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			name = excluded.name,
			score = excluded.score,
			updated_at = excluded.updated_at`

	sqliteEnroll = `INSERT INTO leaderboard (username, name, score, "rank", created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING`

	sqliteRecompute = `UPDATE leaderboard SET "rank" = ranked.position
		FROM (
			SELECT username, ROW_NUMBER() OVER (ORDER BY score DESC, username ASC) AS position
			FROM leaderboard
		) AS ranked
		WHERE leaderboard.username = ranked.username`

	sqliteEntryColumns = `username, name, score, "rank", updated_at`
)

type sqliteEntry struct {
	Username  string `db:"username"`
	Name      string `db:"name"`
	Score     int64  `db:"score"`
	Rank      int    `db:"rank"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r sqliteEntry) entry() Entry {
	return Entry{
		Username:  r.Username,
		Name:      r.Name,
		Score:     r.Score,
		Rank:      r.Rank,
		UpdatedAt: time.UnixMilli(r.UpdatedAt),
	}
}

type sqliteUser struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	FullName     string `db:"full_name"`
	Class        int    `db:"class"`
	CreatedAt    int64  `db:"created_at"`
}

func (r sqliteUser) user() types.User {
	return types.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FullName:     r.FullName,
		Class:        r.Class,
		CreatedAt:    time.UnixMilli(r.CreatedAt),
	}
}

// SQLStore is a Store and Catalog over SQLite. The pool is capped at a single
// connection, so write transactions are serialised by database/sql itself.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...SQLOption) (*SQLStore, error) {
	o := defaultSQLOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %w", ErrUnavailable, path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return &SQLStore{db: db, now: o.clock}, nil
}

func sqliteDSN(path string) string {
	if path == "" || path == ":memory:" {
		return ":memory:"
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Submit upserts username and recomputes all ranks in one transaction.
func (s *SQLStore) Submit(ctx context.Context, username, name string, score int64) (Entry, error) {
	now := s.now().UnixMilli()
	return s.write(ctx, username, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, sqliteUpsert, username, name, score, types.ProvisionalRank, now, now)
		return err
	})
}

// Enroll inserts a zero-score entry when username is absent.
func (s *SQLStore) Enroll(ctx context.Context, username, name string) (Entry, error) {
	now := s.now().UnixMilli()
	return s.write(ctx, username, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, sqliteEnroll, username, name, types.ProvisionalRank, now, now)
		return err
	})
}

func (s *SQLStore) write(ctx context.Context, username string, upsert func(*sqlx.Tx) error) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: begin: %w", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsert(tx); err != nil {
		return Entry{}, fmt.Errorf("upsert %q: %w", username, err)
	}

	recompute := time.Now()
	if _, err := tx.ExecContext(ctx, sqliteRecompute); err != nil {
		return Entry{}, fmt.Errorf("recompute ranks: %w", err)
	}
	metrics.RecordRecomputeLatency(float64(time.Since(recompute).Milliseconds()))

	var row sqliteEntry
	if err := tx.GetContext(ctx, &row, `SELECT `+sqliteEntryColumns+` FROM leaderboard WHERE username = ?`, username); err != nil {
		return Entry{}, fmt.Errorf("read back %q: %w", username, err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit: %w", err)
	}
	return row.entry(), nil
}

func (s *SQLStore) Standings(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	var rows []sqliteEntry
	q := `SELECT ` + sqliteEntryColumns + ` FROM leaderboard ORDER BY "rank" ASC, username ASC LIMIT ?`
	if err := s.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, s.readErr("standings", err)
	}
	return toEntries(rows), nil
}

func (s *SQLStore) Rank(ctx context.Context, username string) (Entry, error) {
	var row sqliteEntry
	err := s.db.GetContext(ctx, &row, `SELECT `+sqliteEntryColumns+` FROM leaderboard WHERE username = ?`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("rank %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return Entry{}, s.readErr("rank", err)
	}
	return row.entry(), nil
}

func (s *SQLStore) Search(ctx context.Context, q string, limit int) ([]Entry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	var rows []sqliteEntry
	pattern := likePattern(q)
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+sqliteEntryColumns+` FROM leaderboard
		WHERE username LIKE ? ESCAPE '\' OR name LIKE ? ESCAPE '\'
		ORDER BY "rank" ASC LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, s.readErr("search", err)
	}
	return toEntries(rows), nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM leaderboard`); err != nil {
		return 0, s.readErr("count", err)
	}
	return n, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) readErr(op string, err error) error {
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toEntries(rows []sqliteEntry) []Entry {
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = r.entry()
	}
	return out
}

// Catalog

func (s *SQLStore) Subjects(ctx context.Context, class int) ([]types.Subject, error) {
	out := make([]types.Subject, 0)
	if err := s.db.SelectContext(ctx, &out,
		`SELECT id, name, class, progress FROM subjects WHERE class = ? ORDER BY name`, class); err != nil {
		return nil, s.readErr("subjects", err)
	}
	return out, nil
}

func (s *SQLStore) UpsertSubject(ctx context.Context, name string, class, progress int) (types.Subject, error) {
	var out types.Subject
	err := s.db.GetContext(ctx, &out,
		`INSERT INTO subjects (name, class, progress, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (name, class) DO UPDATE SET progress = excluded.progress, updated_at = excluded.updated_at
		RETURNING id, name, class, progress`,
		name, class, progress, s.now().UnixMilli())
	if err != nil {
		return types.Subject{}, fmt.Errorf("upsert subject %q: %w", name, err)
	}
	return out, nil
}

func (s *SQLStore) EnsureSubjects(ctx context.Context, class int, names []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()
	now := s.now().UnixMilli()
	for _, name := range names {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO subjects (name, class, progress, updated_at) VALUES (?, ?, 0, ?)
			ON CONFLICT (name, class) DO NOTHING`, name, class, now); err != nil {
			return fmt.Errorf("ensure subject %q: %w", name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) SearchSubjects(ctx context.Context, q string, limit int) ([]types.Subject, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	var out []types.Subject
	if err := s.db.SelectContext(ctx, &out,
		`SELECT id, name, class, progress FROM subjects WHERE name LIKE ? ESCAPE '\'
		ORDER BY class, name LIMIT ?`, likePattern(q), limit); err != nil {
		return nil, s.readErr("search subjects", err)
	}
	return out, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, u types.User) (types.User, error) {
	created := s.now()
	email := strings.ToLower(u.Email)
	var id int64
	err := s.db.GetContext(ctx, &id,
		`INSERT INTO users (username, email, password_hash, full_name, class, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		u.Username, email, u.PasswordHash, u.FullName, u.Class, created.UnixMilli())
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqliteConstraintUnique {
			return types.User{}, fmt.Errorf("user %q: %w", email, ErrConflict)
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	u.Email = email
	u.CreatedAt = time.UnixMilli(created.UnixMilli())
	return u, nil
}

const sqliteUserColumns = `id, username, email, password_hash, full_name, class, created_at`

func (s *SQLStore) UserByEmail(ctx context.Context, email string) (types.User, error) {
	return s.user(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
}

func (s *SQLStore) UserByID(ctx context.Context, id int64) (types.User, error) {
	return s.user(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
}

func (s *SQLStore) user(ctx context.Context, q string, arg any) (types.User, error) {
	var row sqliteUser
	err := s.db.GetContext(ctx, &row, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, fmt.Errorf("user %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return types.User{}, s.readErr("user", err)
	}
	return row.user(), nil
}

func (s *SQLStore) Counts(ctx context.Context) (types.Counts, error) {
	var c types.Counts
	if err := s.db.GetContext(ctx, &c.Subjects, `SELECT COUNT(*) FROM subjects`); err != nil {
		return c, s.readErr("count subjects", err)
	}
	if err := s.db.GetContext(ctx, &c.Users, `SELECT COUNT(*) FROM users`); err != nil {
		return c, s.readErr("count users", err)
	}
	return c, nil
}

var (
	_ Store   = (*SQLStore)(nil)
	_ Catalog = (*SQLStore)(nil)
)
