package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mcoot/partyroom/internal/api"
	"github.com/mcoot/partyroom/internal/factory"
	"github.com/mcoot/partyroom/internal/services/auth"
	redisstorage "github.com/mcoot/partyroom/internal/storage/redis"
)

func main() {
	// A missing .env is fine; the environment and flags still apply
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newCmd(&Config{})
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	level, _ := cfg.level()

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	authCfg := auth.DefaultConfig()
	authCfg.Secret = []byte(cfg.jwtSecret)
	authCfg.TokenTTL = cfg.tokenTTL

	factoryCfg := factory.Config{
		AuthConfig:    authCfg,
		Logger:        logger,
		StorageType:   cfg.storage,
		SQLitePath:    cfg.sqlitePath,
		OracleURL:     cfg.oracleURL,
		OracleTimeout: cfg.oracleTimeout,
		Countdown:     cfg.countdown,

		HubCleanupInterval: cfg.hubCleanup,
	}
	if cfg.storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.redisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close application", slog.String("error", err.Error()))
		}
	}()

	if cfg.jwtSecret == "" {
		logger.Warn("no jwt secret configured; tokens will not survive a restart")
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.bind
	serverConfig.Port = cfg.port
	server := api.NewServer(app.Router(cfg.publicURL), serverConfig, logger)

	logger.Info("server configured",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.storage),
	)

	return server.Run(ctx)
}
