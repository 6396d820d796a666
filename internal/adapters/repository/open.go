package repository

import (
	"context"
	"fmt"
	"strings"
)

// Backend kinds accepted by Open.
const (
	KindMemory   = "memory"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
)

// Config selects and parameterises a storage backend.
type Config struct {
	Kind        string
	DatabaseURL string
	SQLitePath  string
	MaxConns    int
}

// Backend bundles the leaderboard store with the catalog sharing its storage.
type Backend struct {
	Kind    string
	Store   Store
	Catalog Catalog
}

// Close releases the underlying storage.
func (b *Backend) Close() error {
	if b == nil || b.Store == nil {
		return nil
	}
	return b.Store.Close()
}

// Open builds the backend described by cfg.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	switch kind {
	case "", KindMemory:
		return &Backend{Kind: KindMemory, Store: NewTreapStore(), Catalog: NewMemoryCatalog()}, nil
	case KindSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Backend{Kind: kind, Store: s, Catalog: s}, nil
	case KindPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("%w: postgres backend needs a database url", ErrUnavailable)
		}
		s, err := OpenPostgres(ctx, cfg.DatabaseURL, WithMaxConns(cfg.MaxConns))
		if err != nil {
			return nil, err
		}
		return &Backend{Kind: kind, Store: s, Catalog: s}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Kind)
	}
}
