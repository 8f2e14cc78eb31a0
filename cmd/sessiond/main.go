// Sessiond is a session event pipeline daemon with HTTP/SSE transport.
//
// It runs agent sessions through a priority-ordered lifecycle hook registry
// and fans generation events out to SSE subscribers, optionally relaying
// wire frames over NATS.
//
// Configuration is loaded from a YAML file and SESSIOND_* environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start daemon with defaults
//	sessiond
//
//	# Configure via file and environment
//	SESSIOND_SERVER_PORT=9090 sessiond --config /etc/sessiond/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/sessiond/internal/config"
	"github.com/fyrsmithlabs/sessiond/internal/hooks"
	sessionhttp "github.com/fyrsmithlabs/sessiond/internal/http"
	"github.com/fyrsmithlabs/sessiond/internal/logging"
	"github.com/fyrsmithlabs/sessiond/internal/session"
	"github.com/fyrsmithlabs/sessiond/internal/stream"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  sessiond           Start the sessiond daemon\n")
			fmt.Fprintf(os.Stderr, "  sessiond version   Show version information\n")
			os.Exit(1)
		}
	}

	// Signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("sessiond by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the sessiond server and blocks until context is cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize logger
//  3. Connect to NATS (if the frame relay is enabled)
//  4. Build the hook registry with built-in hooks
//  5. Build the streaming bridge and session orchestrator
//  6. Start the HTTP server and the config watcher
//  7. Graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "Starting sessiond",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	// Frame relay over NATS is optional; the bridge works without it.
	var relay *stream.Relay
	var nc *nats.Conn
	if cfg.NATS.Enabled {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		defer nc.Close()
		relay = stream.NewRelay(nc)
		logger.Info(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))
	}

	registry := hooks.NewRegistry(&cfg.Hooks, logger.Underlying().Named("hooks"))
	registry.Register(hooks.ScopeVerificationHook())

	bridge := stream.NewBridge(logger.Underlying().Named("stream"), relay)
	orch := session.NewOrchestrator(registry, bridge, logger.Named("session"))

	srv, err := sessionhttp.NewServer(orch, logger.Underlying().Named("http"), &sessionhttp.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval.Duration(),
		SubscriberBuffer:  cfg.Stream.SubscriberBuffer,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Hot-reload hook configuration on config file changes.
	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, logger.Underlying().Named("config"), func(next *config.Config) {
				registry.SetConfig(&next.Hooks)
				logger.Info(ctx, "Hook configuration reloaded",
					zap.Bool("scope_verification", next.Hooks.ScopeVerification.Enabled))
			})
			if err != nil {
				logger.Warn(ctx, "Config watcher stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initLogger builds the structured logger from the logging section.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	if cfg.Logging.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
		}
		logCfg.Level = level
	}
	if cfg.Logging.Format != "" {
		logCfg.Format = cfg.Logging.Format
	}
	return logging.NewLogger(logCfg)
}
