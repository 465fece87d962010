package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"boardhost/pkg/config"
	"boardhost/pkg/engine/demoengine"
	"boardhost/pkg/registry"
	"boardhost/pkg/server"
)

func main() {
	cfg := loadAndConfigureSystem()

	core, err := server.NewGameServerCore(cfg, cfg.WebDir, gameDefinitions())
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize game server core")
	}
	core.Start()

	srv, listener := initializeServer(cfg, core)
	executeServerLifecycle(srv, listener, core)
}

// gameDefinitions lists every game type this deployment hosts. Additional
// engines register here as they're added.
func gameDefinitions() []registry.Definition {
	return []registry.Definition{
		{
			GameType:   "pilegame",
			Factory:    demoengine.New,
			MinPlayers: 2,
			MaxPlayers: 4,
			GameOptions: map[string]registry.OptionDef{
				"pileCount": {Kind: registry.OptionKindNumber, Default: float64(3)},
			},
		},
	}
}

// loadAndConfigureSystem loads configuration and sets up logging.
func loadAndConfigureSystem() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	configureLogging(cfg.LogLevel)
	logStartupInfo(cfg)
	return cfg
}

// configureLogging sets up the logging system based on configuration.
func configureLogging(logLevel string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.WithError(err).Warn("Invalid log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// logStartupInfo logs server startup information.
func logStartupInfo(cfg *config.Config) {
	logrus.WithFields(logrus.Fields{
		"port":           cfg.ServerPort,
		"webDir":         cfg.WebDir,
		"sessionTimeout": cfg.SessionTimeout,
		"logLevel":       cfg.LogLevel,
		"devMode":        cfg.EnableDevMode,
	}).Info("Starting board game hosting server")
}

// initializeServer creates the HTTP server and network listener.
func initializeServer(cfg *config.Config, core *server.GameServerCore) (*http.Server, net.Listener) {
	srv := &http.Server{
		Handler:      core.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections are long-lived
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ServerPort))
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start listener")
	}

	return srv, listener
}

// executeServerLifecycle handles the complete server lifecycle including startup and shutdown.
func executeServerLifecycle(srv *http.Server, listener net.Listener, core *server.GameServerCore) {
	sigChan, errChan := setupShutdownHandling()
	startServerAsync(srv, listener, errChan)
	waitForShutdownSignal(sigChan, errChan)
	performGracefulShutdown(srv, core)
}

// setupShutdownHandling creates channels for graceful shutdown signal handling.
func setupShutdownHandling() (chan os.Signal, chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	errChan := make(chan error, 1)
	return sigChan, errChan
}

// startServerAsync starts the server in a background goroutine.
func startServerAsync(srv *http.Server, listener net.Listener, errChan chan error) {
	go func() {
		logrus.WithField("address", listener.Addr()).Info("Server listening")
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server failed: %w", err)
		}
	}()
}

// waitForShutdownSignal waits for either a shutdown signal or server error.
func waitForShutdownSignal(sigChan chan os.Signal, errChan chan error) {
	select {
	case sig := <-sigChan:
		logrus.WithField("signal", sig).Info("Received shutdown signal")
	case err := <-errChan:
		logrus.WithError(err).Error("Server error")
	}
}

// performGracefulShutdown stops accepting connections, drains every live
// session to the store, and stops background housekeeping.
func performGracefulShutdown(srv *http.Server, core *server.GameServerCore) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logrus.Info("Shutting down server gracefully...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Error shutting down HTTP server")
	}

	if err := core.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Error shutting down game server core")
	}

	logrus.Info("Server shutdown completed")
}
