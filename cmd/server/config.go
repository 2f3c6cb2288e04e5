package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/partyroom/internal/factory"
	"github.com/mcoot/partyroom/internal/services/coordinator"
	"github.com/mcoot/partyroom/internal/services/scoring"
)

// Config is the resolved server configuration
type Config struct {
	bind          string
	port          int
	storage       string
	redisURL      string
	sqlitePath    string
	jwtSecret     string
	tokenTTL      time.Duration
	oracleURL     string
	oracleTimeout time.Duration
	countdown     time.Duration
	hubCleanup    time.Duration
	logLevel      string
	publicURL     string
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.redisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	case factory.StorageTypeSQLite:
		if c.sqlitePath == "" {
			return errors.New("--sqlite-path is required when --storage=sqlite")
		}
	default:
		return fmt.Errorf("invalid storage %q: must be memory, redis or sqlite", c.storage)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.logLevel)
	}
	return level, nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PARTYROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "partyroom",
		Short: "Multiplayer party game server (war and eratz-ir)",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PARTYROOM_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PARTYROOM_PORT)")
	fs.StringVar(&cfg.storage, "storage", factory.StorageTypeMemory, "storage backend: memory, redis or sqlite (env: PARTYROOM_STORAGE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection url (env: PARTYROOM_REDIS_URL)")
	fs.StringVar(&cfg.sqlitePath, "sqlite-path", "partyroom.db", "sqlite database file (env: PARTYROOM_SQLITE_PATH)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "", "token signing secret; random when empty (env: PARTYROOM_JWT_SECRET)")
	fs.DurationVar(&cfg.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of issued tokens (env: PARTYROOM_TOKEN_TTL)")
	fs.StringVar(&cfg.oracleURL, "oracle-url", "", "answer judging service; heuristic scoring when empty (env: PARTYROOM_ORACLE_URL)")
	fs.DurationVar(&cfg.oracleTimeout, "oracle-timeout", scoring.DefaultTimeout, "time allowed for one judging call (env: PARTYROOM_ORACLE_TIMEOUT)")
	fs.DurationVar(&cfg.countdown, "countdown", coordinator.DefaultCountdown, "word round countdown (env: PARTYROOM_COUNTDOWN)")
	fs.DurationVar(&cfg.hubCleanup, "hub-cleanup-interval", factory.DefaultHubCleanupInterval, "how often unwatched session hubs are closed (env: PARTYROOM_HUB_CLEANUP_INTERVAL)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "debug, info, warn or error (env: PARTYROOM_LOG_LEVEL)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "external base url used in invite QR codes (env: PARTYROOM_PUBLIC_URL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
