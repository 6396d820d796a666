package repository

import "strings"

// The leaderboard table keeps "rank" as a column: it is rewritten for every
// row by the recompute pass inside each write transaction.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS leaderboard (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		username   TEXT    NOT NULL UNIQUE,
		name       TEXT    NOT NULL,
		score      INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0),
		"rank"     INTEGER NOT NULL DEFAULT 999,
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leaderboard_rank ON leaderboard ("rank")`,
	`CREATE TABLE IF NOT EXISTS subjects (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT    NOT NULL,
		class      INTEGER NOT NULL CHECK (class BETWEEN 1 AND 11),
		progress   INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
		updated_at INTEGER NOT NULL DEFAULT 0,
		UNIQUE (name, class)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT    NOT NULL UNIQUE,
		email         TEXT    NOT NULL UNIQUE,
		password_hash TEXT    NOT NULL,
		full_name     TEXT    NOT NULL,
		class         INTEGER NOT NULL CHECK (class BETWEEN 1 AND 11),
		created_at    INTEGER NOT NULL DEFAULT 0
	)`,
}

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS leaderboard (
		id         BIGSERIAL   PRIMARY KEY,
		username   TEXT        NOT NULL UNIQUE,
		name       TEXT        NOT NULL,
		score      BIGINT      NOT NULL DEFAULT 0 CHECK (score >= 0),
		"rank"     INTEGER     NOT NULL DEFAULT 999,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leaderboard_rank ON leaderboard ("rank")`,
	`CREATE TABLE IF NOT EXISTS subjects (
		id         BIGSERIAL   PRIMARY KEY,
		name       TEXT        NOT NULL,
		class      INTEGER     NOT NULL CHECK (class BETWEEN 1 AND 11),
		progress   INTEGER     NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (name, class)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL   PRIMARY KEY,
		username      TEXT        NOT NULL UNIQUE,
		email         TEXT        NOT NULL UNIQUE,
		password_hash TEXT        NOT NULL,
		full_name     TEXT        NOT NULL,
		class         INTEGER     NOT NULL CHECK (class BETWEEN 1 AND 11),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// likePattern builds a %q% pattern with LIKE metacharacters escaped by '\'.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
