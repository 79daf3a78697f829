// Package factory wires the application together: storage backend,
// generation gateway, SSE hubs, and the room manager.
package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/playroomlabs/partyroom/internal/dependencies/clock"
	"github.com/playroomlabs/partyroom/internal/dependencies/random"
	"github.com/playroomlabs/partyroom/internal/gen"
	"github.com/playroomlabs/partyroom/internal/services/rooms"
	"github.com/playroomlabs/partyroom/internal/sse"
	"github.com/playroomlabs/partyroom/internal/storage"
	"github.com/playroomlabs/partyroom/internal/storage/memory"
	redisstorage "github.com/playroomlabs/partyroom/internal/storage/redis"
	"github.com/playroomlabs/partyroom/internal/timers"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clock.Clock
	Random    random.Random
	Scheduler timers.Scheduler

	// Services
	Gateway     gen.Gateway
	HubManager  *sse.HubManager
	RoomManager *rooms.Manager
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// BackendConfig holds generation service settings (optional)
	// If nil, defaults to gen.DefaultHTTPBackendConfig()
	BackendConfig *gen.HTTPBackendConfig
	// RoomsConfig holds engine configurations (optional)
	// If nil, defaults to rooms.DefaultConfig()
	RoomsConfig *rooms.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()
	scheduler := timers.NewScheduler()

	// Create the generation gateway
	backendCfg := gen.DefaultHTTPBackendConfig()
	if cfg.BackendConfig != nil {
		backendCfg = *cfg.BackendConfig
	}
	backend := gen.NewHTTPBackend(backendCfg)
	limiter := gen.NewLimiter(gen.DefaultLimiterConfig(), clk)
	gateway := gen.NewClient(backend, limiter, clk, gen.DefaultClientConfig(), logger)

	roomsCfg := rooms.DefaultConfig()
	if cfg.RoomsConfig != nil {
		roomsCfg = *cfg.RoomsConfig
	}

	return newWithDependencies(store, gateway, clk, rnd, scheduler, roomsCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	gateway gen.Gateway,
	clk clock.Clock,
	rnd random.Random,
	scheduler timers.Scheduler,
	roomsCfg rooms.Config,
	logger *slog.Logger,
) *App {
	hubManager := sse.NewHubManager(logger)
	roomManager := rooms.NewManager(store, hubManager, gateway, clk, rnd, scheduler, roomsCfg, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Scheduler:   scheduler,
		Gateway:     gateway,
		HubManager:  hubManager,
		RoomManager: roomManager,
	}
}
