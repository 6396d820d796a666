package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/scool/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"SCOOL_CONFIG", "SCOOL_ADDR", "SCOOL_STORE", "SCOOL_DATABASE_URL", "SCOOL_WRITE_QUEUE_SIZE",
	"SCOOL_MAX_LEADERBOARD_LIMIT", "SCOOL_REQUIRE_STORE", "SCOOL_RATE_LIMIT_RPS", "SCOOL_LOG_LEVEL",
	"SCOOL_TRUST_PROXY",
	"PORT", "DATABASE_URL",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeTemp(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()
		noDotEnv := config.WithDotEnv("")

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx, noDotEnv)

			convey.Convey("Then the defaults come through", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)
			})
		})

		convey.Convey("When SCOOL_ variables are set", func() {
			_ = os.Setenv("SCOOL_ADDR", ":8080")
			_ = os.Setenv("SCOOL_STORE", "memory")
			_ = os.Setenv("SCOOL_WRITE_QUEUE_SIZE", "256")
			_ = os.Setenv("SCOOL_REQUIRE_STORE", "true")
			_ = os.Setenv("SCOOL_RATE_LIMIT_RPS", "2.5")
			_ = os.Setenv("SCOOL_TRUST_PROXY", "true")

			cfg, err := config.Load(ctx, noDotEnv)

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.WriteQueueSize, convey.ShouldEqual, 256)
				convey.So(cfg.RequireStore, convey.ShouldBeTrue)
				convey.So(cfg.RateLimitRPS, convey.ShouldEqual, 2.5)
				convey.So(cfg.TrustProxy, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a YAML file is named", func() {
			path := writeTemp(t, "scool.yaml", "addr: \":9090\"\nstore: memory\nmax_leaderboard_limit: 50\n")
			_ = os.Setenv("SCOOL_CONFIG", path)
			_ = os.Setenv("SCOOL_ADDR", ":7070")

			cfg, err := config.Load(ctx, noDotEnv)

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 50)
				convey.So(cfg.DefaultLeaderboardLimit, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When the YAML file is malformed", func() {
			_ = os.Setenv("SCOOL_CONFIG", writeTemp(t, "bad.yaml", "invalid: yaml: content: ["))

			cfg, err := config.Load(ctx, noDotEnv)

			convey.Convey("Then loading fails with ErrLoadConfig", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("SCOOL_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx, noDotEnv)

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the addr is empty", func() {
			_ = os.Setenv("SCOOL_ADDR", "")

			_, err := config.Load(ctx, noDotEnv)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			})
		})

		convey.Convey("When only platform variables are set", func() {
			_ = os.Setenv("PORT", "5000")
			_ = os.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/scool")

			cfg, err := config.Load(ctx, noDotEnv)

			convey.Convey("Then they select the port and the postgres store", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
				convey.So(cfg.Store, convey.ShouldEqual, config.StorePostgres)
				convey.So(cfg.DatabaseURL, convey.ShouldEqual, "postgres://u:p@localhost:5432/scool")
			})
		})

		convey.Convey("When both PORT and SCOOL_ADDR are set", func() {
			_ = os.Setenv("PORT", "5000")
			_ = os.Setenv("SCOOL_ADDR", ":6000")

			cfg, err := config.Load(ctx, noDotEnv)

			convey.Convey("Then SCOOL_ADDR wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6000")
			})
		})

		convey.Convey("When a .env file is present", func() {
			path := writeTemp(t, ".env", "SCOOL_STORE=memory\nSCOOL_LOG_LEVEL=debug\n")
			_ = os.Setenv("SCOOL_LOG_LEVEL", "warn")

			cfg, err := config.Load(ctx, config.WithDotEnv(path))

			convey.Convey("Then it fills gaps without overriding the environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
			})
		})

		convey.Convey("When the .env file is missing", func() {
			_, err := config.Load(ctx, config.WithDotEnv(filepath.Join(t.TempDir(), "absent.env")))

			convey.Convey("Then it is ignored", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}
