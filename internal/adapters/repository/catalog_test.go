package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/scool/internal/domain/types"
)

func catalogs(t *testing.T) map[string]Catalog {
	return map[string]Catalog{
		"memory": NewMemoryCatalog(),
		"sqlite": openSQLite(t),
	}
}

func TestCatalog_Subjects(t *testing.T) {
	ctx := context.Background()
	for name, c := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			if err := c.EnsureSubjects(ctx, 7, []string{"Physics", "Mathematics"}); err != nil {
				t.Fatalf("ensure: %v", err)
			}
			s, err := c.UpsertSubject(ctx, "Physics", 7, 95)
			if err != nil {
				t.Fatalf("upsert: %v", err)
			}
			if s.Progress != 95 || s.ID == 0 {
				t.Fatalf("unexpected subject %+v", s)
			}
			// Existing rows keep their progress.
			if err := c.EnsureSubjects(ctx, 7, []string{"Physics"}); err != nil {
				t.Fatalf("ensure again: %v", err)
			}

			got, err := c.Subjects(ctx, 7)
			if err != nil {
				t.Fatalf("subjects: %v", err)
			}
			if len(got) != 2 || got[0].Name != "Mathematics" || got[1].Progress != 95 {
				t.Fatalf("unexpected class 7 subjects: %+v", got)
			}

			empty, err := c.Subjects(ctx, 11)
			if err != nil || empty == nil || len(empty) != 0 {
				t.Fatalf("expected an empty non-nil slice, got %#v err %v", empty, err)
			}

			hits, err := c.SearchSubjects(ctx, "phys", 5)
			if err != nil || len(hits) != 1 {
				t.Fatalf("search: %+v err %v", hits, err)
			}
		})
	}
}

func TestCatalog_Users(t *testing.T) {
	ctx := context.Background()
	for name, c := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			u, err := c.CreateUser(ctx, types.User{
				Username: "maria_k", Email: "Maria@School.ru", FullName: "Maria K.", Class: 7, PasswordHash: "hash",
			})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if u.ID == 0 || u.Email != "maria@school.ru" || u.CreatedAt.IsZero() {
				t.Fatalf("unexpected user %+v", u)
			}

			_, err = c.CreateUser(ctx, types.User{Username: "other", Email: "maria@school.ru", FullName: "X", Class: 7, PasswordHash: "h"})
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}

			byEmail, err := c.UserByEmail(ctx, "MARIA@school.ru")
			if err != nil || byEmail.ID != u.ID || byEmail.PasswordHash != "hash" {
				t.Fatalf("by email: %+v err %v", byEmail, err)
			}
			byID, err := c.UserByID(ctx, u.ID)
			if err != nil || byID.Username != "maria_k" {
				t.Fatalf("by id: %+v err %v", byID, err)
			}
			if _, err := c.UserByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			counts, err := c.Counts(ctx)
			if err != nil || counts.Users != 1 {
				t.Fatalf("counts: %+v err %v", counts, err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Config{})
	if err != nil || b.Kind != KindMemory {
		t.Fatalf("default backend: %+v err %v", b, err)
	}
	_ = b.Close()

	b, err = Open(ctx, Config{Kind: "SQLite", SQLitePath: ":memory:"})
	if err != nil || b.Kind != KindSQLite {
		t.Fatalf("sqlite backend: %+v err %v", b, err)
	}
	if err := b.Store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	_ = b.Close()

	if _, err := Open(ctx, Config{Kind: "postgres"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("postgres without url: %v", err)
	}
	if _, err := Open(ctx, Config{Kind: "mongo"}); !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("unknown backend: %v", err)
	}
}

func TestLikePattern(t *testing.T) {
	cases := map[string]string{
		"abc": "%abc%",
		"a_b": `%a\_b%`,
		"50%": `%50\%%`,
		`a\b`: `%a\\b%`,
		"":    "%%",
	}
	for in, want := range cases {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
