package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"boardhost/pkg/ai"
	"boardhost/pkg/config"
	"boardhost/pkg/lobby"
	"boardhost/pkg/matchmaker"
	"boardhost/pkg/registry"
	"boardhost/pkg/session"
	"boardhost/pkg/store"
	"boardhost/pkg/validation"
)

// GameServerCore is the transport-facing owner of every live GameSession. It
// resolves a gameId to a *session.Session and translates HTTP/WebSocket
// requests into session method calls.
type GameServerCore struct {
	webDir     string
	fileServer http.Handler

	done chan struct{}

	store      store.GameStore
	gameTypes  *registry.Registry
	registry   *session.Registry
	lobbies    *lobby.Coordinator
	ai         *sessionAIConfig
	matchmaker *matchmaker.Matchmaker
	validator  *validation.InputValidator
	metrics    *Metrics
	config     *config.Config

	healthChecker *HealthChecker
	profiling     *ProfilingServer
	perfMonitor   *PerformanceMonitor
	timeouts      *OperationTimeouts

	shutdownOn sync.Once
}

// sessionAIConfig bundles the AI tunables every new Session is constructed
// with, mirroring config.Config's think-timeout/budget fields.
type sessionAIConfig struct {
	budgets map[string]int
	timeout time.Duration
}

// NewGameServerCore constructs a GameServerCore from cfg, wiring the game
// store backend it names and registering every game type in defs.
func NewGameServerCore(cfg *config.Config, webDir string, defs []registry.Definition) (*GameServerCore, error) {
	logger := logrus.WithField("function", "NewGameServerCore")

	gameTypes := registry.New()
	for _, def := range defs {
		if err := gameTypes.Register(def); err != nil {
			return nil, fmt.Errorf("registering game type %q: %w", def.GameType, err)
		}
	}

	st, err := newGameStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing game store: %w", err)
	}

	core := &GameServerCore{
		webDir:     webDir,
		fileServer: http.FileServer(http.Dir(webDir)),
		done:       make(chan struct{}),
		store:      st,
		gameTypes:  gameTypes,
		registry:   session.NewRegistry(),
		lobbies:    lobby.NewCoordinator("color"),
		ai: &sessionAIConfig{
			budgets: ai.DefaultBudgets,
			timeout: cfg.ThinkTimeout,
		},
		matchmaker: matchmaker.New(cfg.MatchmakingTTL, func() string { return uuid.New().String() }),
		validator:  validation.NewInputValidator(cfg.MaxRequestSize),
		config:     cfg,
	}

	core.timeouts = NewOperationTimeouts(cfg)
	if err := core.timeouts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid operation timeouts: %w", err)
	}

	core.metrics = NewMetrics()
	core.healthChecker = NewHealthChecker(core)
	core.profiling = NewProfilingServer(ProfilingConfig{
		Enabled: cfg.EnableProfiling || cfg.EnableDevMode,
		Path:    "/debug/pprof",
	})
	core.perfMonitor = NewPerformanceMonitor(core.metrics, cfg.MetricsInterval, core.registry.Count)

	logger.WithField("gameTypes", len(defs)).Info("initialized game server core")
	return core, nil
}

func newGameStore(cfg *config.Config) (store.GameStore, error) {
	switch cfg.StorageBackend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "durable":
		if cfg.StoragePath == "" {
			return nil, fmt.Errorf("storage_backend=durable requires storage_path")
		}
		return store.NewDurableStore(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage_backend %q", cfg.StorageBackend)
	}
}

// sessionConfig derives a session.Config from the server's process-wide
// configuration, shared by every Session this core constructs.
func (c *GameServerCore) sessionConfig() session.Config {
	return session.Config{
		CheckpointInterval: c.config.CheckpointInterval,
		CheckpointWindow:   c.config.CheckpointWindow,
		ThinkTimeout:       c.ai.timeout,
		AIBudgets:          c.ai.budgets,
		Metrics:            c.metrics,
	}
}

// newGameID mints a process-unique gameId.
func (c *GameServerCore) newGameID() string {
	return uuid.New().String()
}

// Routes builds the HTTP handler for the whole server: REST API, WebSocket
// upgrade, health/metrics/profiling endpoints, and static file serving,
// wrapped in the shared middleware stack.
func (c *GameServerCore) Routes() http.Handler {
	mux := http.NewServeMux()
	c.registerGameRoutes(mux)
	c.registerMatchmakingRoutes(mux)

	mux.HandleFunc("GET /health", c.healthChecker.HealthHandler)
	mux.HandleFunc("GET /ready", c.healthChecker.ReadinessHandler)
	mux.HandleFunc("GET /live", c.healthChecker.LivenessHandler)
	mux.Handle("GET /metrics", c.metrics.GetHandler())

	if c.webDir != "" {
		mux.Handle("/", c.fileServer)
	}

	var handler http.Handler = mux
	handler = c.metrics.MetricsMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	if c.config.RateLimitEnabled {
		rl := NewRateLimiter(c.config)
		handler = RateLimitingMiddleware(rl)(handler)
	}
	handler = CORSMiddleware(c.config.AllowedOrigins)(handler)
	return handler
}

// Start begins background housekeeping (performance monitoring, profiling).
// It does not itself bind a listener; callers run Routes() behind their own
// http.Server so lifecycle (graceful shutdown, TLS) stays their concern.
func (c *GameServerCore) Start() {
	go c.perfMonitor.Start()
	if c.profiling.config.Enabled {
		go func() {
			if err := c.profiling.StartProfiling(fmt.Sprintf(":%d", c.config.ProfilingPort)); err != nil {
				logrus.WithError(err).Error("profiling server failed")
			}
		}()
	}
}

// Shutdown stops accepting new session work, persists every live session,
// and stops background housekeeping. Safe to call more than once.
func (c *GameServerCore) Shutdown(ctx context.Context) error {
	var err error
	c.shutdownOn.Do(func() {
		close(c.done)
		c.perfMonitor.Stop()

		var firstErr error
		for _, sess := range c.registry.All() {
			serr := c.timeouts.Run(ctx, c.timeouts.Shutdown, func(sctx context.Context) error {
				return sess.Shutdown(sctx)
			})
			if serr != nil && firstErr == nil {
				firstErr = serr
			}
		}
		if perr := c.profiling.Shutdown(ctx); perr != nil && firstErr == nil {
			firstErr = perr
		}
		err = firstErr
	})
	return err
}
