package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SCOOL_"

// LoadOption tweaks Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	dotenv string
}

// WithDotEnv names the .env file read before the environment. An empty path
// disables it.
func WithDotEnv(path string) LoadOption {
	return func(o *loadOptions) { o.dotenv = path }
}

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (New(ctx))
//  2. .env, which never overrides variables already set
//  3. YAML file if SCOOL_CONFIG is set
//  4. env (prefix SCOOL_)
//  5. PORT and DATABASE_URL when their SCOOL_ counterparts are unset
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{dotenv: ".env"}
	for _, opt := range opts {
		opt(&o)
	}

	if o.dotenv != "" {
		if err := godotenv.Load(o.dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, o.dotenv, err)
		}
	}

	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SCOOL_WRITE_QUEUE_SIZE -> write_queue_size; keys stay flat.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	applyPlatformEnv(&cfg, k)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformEnv honours the conventional PORT and DATABASE_URL variables.
func applyPlatformEnv(cfg *Config, k *koanf.Koanf) {
	if port := os.Getenv("PORT"); port != "" && !k.Exists("addr") {
		cfg.Addr = ":" + port
	}
	if url := os.Getenv("DATABASE_URL"); url != "" && !k.Exists("database_url") {
		cfg.DatabaseURL = url
		if !k.Exists("store") {
			cfg.Store = StorePostgres
		}
	}
}
