package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/scool/internal/domain/types"
	"github.com/okian/scool/pkg/metrics"
)

const pgUniqueViolation = "23505"

const (
	pgUpsert = `INSERT INTO leaderboard (username, name, score, "rank", created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (username) DO UPDATE SET
			name = EXCLUDED.name,
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at`

	pgEnroll = `INSERT INTO leaderboard (username, name, score, "rank", created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $4)
		ON CONFLICT (username) DO NOTHING`

	pgRecompute = `UPDATE leaderboard AS l SET "rank" = r.position
		FROM (
			SELECT username, ROW_NUMBER() OVER (ORDER BY score DESC, username ASC) AS position
			FROM leaderboard
		) AS r
		WHERE l.username = r.username AND l."rank" IS DISTINCT FROM r.position`

	pgEntryColumns = `username, name, score, "rank", updated_at`
	pgUserColumns  = `id, username, email, password_hash, full_name, class, created_at`
)

type pgEntry struct {
	Username  string    `db:"username"`
	Name      string    `db:"name"`
	Score     int64     `db:"score"`
	Rank      int       `db:"rank"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r pgEntry) entry() Entry {
	return Entry{Username: r.Username, Name: r.Name, Score: r.Score, Rank: r.Rank, UpdatedAt: r.UpdatedAt}
}

type pgUser struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FullName     string    `db:"full_name"`
	Class        int       `db:"class"`
	CreatedAt    time.Time `db:"created_at"`
}

// PGStore is a Store and Catalog over PostgreSQL. Writes take a table lock
// that conflicts with itself, so concurrent recomputes queue up behind each
// other while plain readers keep going.
type PGStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects to url, verifies the connection and applies the schema.
func OpenPostgres(ctx context.Context, url string, opts ...SQLOption) (*PGStore, error) {
	o := defaultSQLOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = o.maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %w", ErrUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %w", ErrUnavailable, err)
	}

	for _, stmt := range pgSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply postgres schema: %w", err)
		}
	}
	return &PGStore{pool: pool, now: o.clock}, nil
}

func (s *PGStore) Submit(ctx context.Context, username, name string, score int64) (Entry, error) {
	return s.write(ctx, username, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, pgUpsert, username, name, score, types.ProvisionalRank, s.now())
		return err
	})
}

func (s *PGStore) Enroll(ctx context.Context, username, name string) (Entry, error) {
	return s.write(ctx, username, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, pgEnroll, username, name, types.ProvisionalRank, s.now())
		return err
	})
}

func (s *PGStore) write(ctx context.Context, username string, upsert func(pgx.Tx) error) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Entry{}, fmt.Errorf("%w: begin: %w", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `LOCK TABLE leaderboard IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return Entry{}, fmt.Errorf("lock leaderboard: %w", err)
	}
	if err := upsert(tx); err != nil {
		return Entry{}, fmt.Errorf("upsert %q: %w", username, err)
	}

	recompute := time.Now()
	if _, err := tx.Exec(ctx, pgRecompute); err != nil {
		return Entry{}, fmt.Errorf("recompute ranks: %w", err)
	}
	metrics.RecordRecomputeLatency(float64(time.Since(recompute).Milliseconds()))

	rows, err := tx.Query(ctx, `SELECT `+pgEntryColumns+` FROM leaderboard WHERE username = $1`, username)
	if err != nil {
		return Entry{}, fmt.Errorf("read back %q: %w", username, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[pgEntry])
	if err != nil {
		return Entry{}, fmt.Errorf("read back %q: %w", username, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Entry{}, fmt.Errorf("commit: %w", err)
	}
	return row.entry(), nil
}

func (s *PGStore) Standings(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()
	return s.entries(ctx, "standings",
		`SELECT `+pgEntryColumns+` FROM leaderboard ORDER BY "rank" ASC, username ASC LIMIT $1`, limit)
}

func (s *PGStore) Rank(ctx context.Context, username string) (Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgEntryColumns+` FROM leaderboard WHERE username = $1`, username)
	if err != nil {
		return Entry{}, pgReadErr("rank", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[pgEntry])
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, fmt.Errorf("rank %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return Entry{}, pgReadErr("rank", err)
	}
	return row.entry(), nil
}

func (s *PGStore) Search(ctx context.Context, q string, limit int) ([]Entry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	return s.entries(ctx, "search",
		`SELECT `+pgEntryColumns+` FROM leaderboard
		WHERE username ILIKE $1 ESCAPE '\' OR name ILIKE $1 ESCAPE '\'
		ORDER BY "rank" ASC LIMIT $2`, likePattern(q), limit)
}

func (s *PGStore) entries(ctx context.Context, op, q string, args ...any) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, pgReadErr(op, err)
	}
	got, err := pgx.CollectRows(rows, pgx.RowToStructByName[pgEntry])
	if err != nil {
		return nil, pgReadErr(op, err)
	}
	out := make([]Entry, len(got))
	for i, r := range got {
		out[i] = r.entry()
	}
	return out, nil
}

func (s *PGStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leaderboard`).Scan(&n); err != nil {
		return 0, pgReadErr("count", err)
	}
	return n, nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

// pgReadErr marks connection-level failures as unavailable.
func pgReadErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if pgconn.SafeToRetry(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *PGStore) Subjects(ctx context.Context, class int) ([]types.Subject, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, class, progress FROM subjects WHERE class = $1 ORDER BY name`, class)
	if err != nil {
		return nil, pgReadErr("subjects", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[types.Subject])
	if err != nil {
		return nil, pgReadErr("subjects", err)
	}
	if out == nil {
		out = []types.Subject{}
	}
	return out, nil
}

func (s *PGStore) UpsertSubject(ctx context.Context, name string, class, progress int) (types.Subject, error) {
	rows, err := s.pool.Query(ctx,
		`INSERT INTO subjects (name, class, progress, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (name, class) DO UPDATE SET progress = EXCLUDED.progress, updated_at = now()
		RETURNING id, name, class, progress`, name, class, progress)
	if err != nil {
		return types.Subject{}, fmt.Errorf("upsert subject %q: %w", name, err)
	}
	out, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[types.Subject])
	if err != nil {
		return types.Subject{}, fmt.Errorf("upsert subject %q: %w", name, err)
	}
	return out, nil
}

func (s *PGStore) EnsureSubjects(ctx context.Context, class int, names []string) error {
	batch := &pgx.Batch{}
	for _, name := range names {
		batch.Queue(`INSERT INTO subjects (name, class, progress) VALUES ($1, $2, 0)
			ON CONFLICT (name, class) DO NOTHING`, name, class)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("ensure subjects for class %d: %w", class, err)
	}
	return nil
}

func (s *PGStore) SearchSubjects(ctx context.Context, q string, limit int) ([]types.Subject, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, class, progress FROM subjects WHERE name ILIKE $1 ESCAPE '\'
		ORDER BY class, name LIMIT $2`, likePattern(q), limit)
	if err != nil {
		return nil, pgReadErr("search subjects", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[types.Subject])
	if err != nil {
		return nil, pgReadErr("search subjects", err)
	}
	return out, nil
}

func (s *PGStore) CreateUser(ctx context.Context, u types.User) (types.User, error) {
	email := strings.ToLower(u.Email)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, full_name, class, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		u.Username, email, u.PasswordHash, u.FullName, u.Class, s.now()).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return types.User{}, fmt.Errorf("user %q: %w", email, ErrConflict)
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	u.Email = email
	return u, nil
}

func (s *PGStore) UserByEmail(ctx context.Context, email string) (types.User, error) {
	return s.user(ctx, `SELECT `+pgUserColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
}

func (s *PGStore) UserByID(ctx context.Context, id int64) (types.User, error) {
	return s.user(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id)
}

func (s *PGStore) user(ctx context.Context, q string, arg any) (types.User, error) {
	rows, err := s.pool.Query(ctx, q, arg)
	if err != nil {
		return types.User{}, pgReadErr("user", err)
	}
	r, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[pgUser])
	if errors.Is(err, pgx.ErrNoRows) {
		return types.User{}, fmt.Errorf("user %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return types.User{}, pgReadErr("user", err)
	}
	return types.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FullName:     r.FullName,
		Class:        r.Class,
		CreatedAt:    r.CreatedAt,
	}, nil
}

func (s *PGStore) Counts(ctx context.Context) (types.Counts, error) {
	var c types.Counts
	err := s.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM subjects), (SELECT COUNT(*) FROM users)`).Scan(&c.Subjects, &c.Users)
	if err != nil {
		return c, pgReadErr("counts", err)
	}
	return c, nil
}

var (
	_ Store   = (*PGStore)(nil)
	_ Catalog = (*PGStore)(nil)
)
