package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/partyroom/internal/api"
	"github.com/mcoot/partyroom/internal/dependencies/clock"
	"github.com/mcoot/partyroom/internal/dependencies/random"
	"github.com/mcoot/partyroom/internal/push"
	"github.com/mcoot/partyroom/internal/scheduler"
	"github.com/mcoot/partyroom/internal/services/auth"
	"github.com/mcoot/partyroom/internal/services/coordinator"
	"github.com/mcoot/partyroom/internal/services/directory"
	"github.com/mcoot/partyroom/internal/services/identity"
	"github.com/mcoot/partyroom/internal/services/oracle"
	"github.com/mcoot/partyroom/internal/services/rooms"
	"github.com/mcoot/partyroom/internal/services/scoring"
	"github.com/mcoot/partyroom/internal/services/war"
	"github.com/mcoot/partyroom/internal/services/wordround"
	"github.com/mcoot/partyroom/internal/storage"
	"github.com/mcoot/partyroom/internal/storage/memory"
	redisstorage "github.com/mcoot/partyroom/internal/storage/redis"
	sqlitestorage "github.com/mcoot/partyroom/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService    *auth.Service
	Directory      *directory.Directory
	Binder         *identity.Binder
	WarEngine      *war.Engine
	ScoringService *scoring.Service
	WordEngine     *wordround.Engine
	Scheduler      *scheduler.Scheduler
	HubManager     *push.HubManager
	Coordinator    *coordinator.Coordinator
	RoomService    *rooms.Service

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// OracleURL is the answer-judging service. Empty means scoring always
	// uses the local heuristic.
	OracleURL     string
	OracleTimeout time.Duration
	// Countdown is how long a word round stays open once its countdown starts
	Countdown time.Duration
	// Word overrides the word game alphabet and categories (optional)
	Word wordround.Config
	// HubCleanupInterval is how often hubs without watchers are swept.
	// If zero, defaults to DefaultHubCleanupInterval.
	HubCleanupInterval time.Duration
}

// DefaultHubCleanupInterval is the sweep period for unwatched session hubs
const DefaultHubCleanupInterval = time.Minute

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	var o oracle.Oracle = oracle.Unavailable{}
	if cfg.OracleURL != "" {
		o = oracle.NewHTTPOracle(cfg.OracleURL, &http.Client{Timeout: scoringTimeout(cfg)}, logger)
	}

	return newWithDependencies(store, clk, rnd, o, cfg, logger), nil
}

func newStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		return sqlitestorage.New(context.Background(), cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'sqlite'", storageType)
	}
}

func scoringTimeout(cfg Config) time.Duration {
	if cfg.OracleTimeout > 0 {
		return cfg.OracleTimeout
	}
	return scoring.DefaultTimeout
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, o oracle.Oracle, cfg Config, logger *slog.Logger) *App {
	authCfg := cfg.AuthConfig
	if authCfg.TokenTTL == 0 && authCfg.Issuer == "" && len(authCfg.Secret) == 0 {
		authCfg = auth.DefaultConfig()
	}
	wordCfg := cfg.Word
	if wordCfg.Alphabet == "" && len(wordCfg.DefaultCategories) == 0 {
		wordCfg = wordround.DefaultConfig()
	}

	// Create services
	authService := auth.New(store, clk, authCfg, logger)
	dir := directory.New(logger)
	binder := identity.NewBinder(authService, logger)
	warEngine := war.NewEngine(rnd, logger)
	scoringService := scoring.New(o, scoringTimeout(cfg), logger)
	wordEngine := wordround.NewEngine(dir, scoringService, store, clk, rnd, wordCfg, logger)
	sched := scheduler.New(clk, logger)
	hubManager := push.NewHubManager(logger)
	hubCleanup := cfg.HubCleanupInterval
	if hubCleanup <= 0 {
		hubCleanup = DefaultHubCleanupInterval
	}
	hubManager.StartCleanup(hubCleanup)
	coord := coordinator.New(
		dir, binder, warEngine, wordEngine, store, sched, hubManager, clk,
		coordinator.Config{Countdown: cfg.Countdown}, logger,
	)
	roomService := rooms.New(store, clk, rnd, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		AuthService:    authService,
		Directory:      dir,
		Binder:         binder,
		WarEngine:      warEngine,
		ScoringService: scoringService,
		WordEngine:     wordEngine,
		Scheduler:      sched,
		HubManager:     hubManager,
		Coordinator:    coord,
		RoomService:    roomService,
		logger:         logger,
	}
}

// Router builds the HTTP API for the app. publicURL is used in room QR codes.
func (a *App) Router(publicURL string) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.logger,
		Clock:       a.Clock,
		AuthService: a.AuthService,
		RoomService: a.RoomService,
		Coordinator: a.Coordinator,
		HubManager:  a.HubManager,
		PublicURL:   publicURL,
	})
}

// Close stops background work and releases storage
func (a *App) Close() error {
	a.Coordinator.Stop()
	a.HubManager.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
