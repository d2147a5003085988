// Package main runs the chess relay: room REST API, join tokens and the
// realtime /live channel moves travel over.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mychess/cmd/chess-relay/cli"
	"mychess/internal/server/http"
	"mychess/internal/server/hub"
	"mychess/internal/server/storage"
)

const (
	gracefulShutdownTimeout = time.Second * 5
	devJWTSecret            = "dev-secret-minimum-32-characters-long"
)

func main() {
	// Offline database commands
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		os.Exit(0)
	}

	var (
		apiHost     = flag.String("api-host", "localhost", "API server host")
		apiPort     = flag.Int("api-port", 8080, "API server port")
		dev         = flag.Bool("dev", false, "Development mode (relaxed rate limits, fixed JWT secret, debug logs)")
		storagePath = flag.String("storage-path", "", "Path to SQLite database file (disables persistence if empty)")
		pidPath     = flag.String("pid", "", "Optional path to write PID file")
		pidLock     = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")
		jwtSecret   = flag.String("jwt-secret", "", "HS256 secret for join tokens (random per run if empty)")
	)
	flag.Parse()

	if *pidLock && *pidPath == "" {
		log.Fatal("Error: -pid-lock flag requires the -pid flag to be set")
	}

	logger, err := newLogger(*dev)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(logger, options{
		addr:        fmt.Sprintf("%s:%d", *apiHost, *apiPort),
		dev:         *dev,
		storagePath: *storagePath,
		pidPath:     *pidPath,
		pidLock:     *pidLock,
		jwtSecret:   *jwtSecret,
	}); err != nil {
		logger.Fatal("relay stopped", zap.Error(err))
	}
}

type options struct {
	addr        string
	dev         bool
	storagePath string
	pidPath     string
	pidLock     bool
	jwtSecret   string
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(logger *zap.Logger, opts options) (err error) {
	if opts.pidPath != "" {
		pid, err := acquirePIDFile(opts.pidPath, opts.pidLock)
		if err != nil {
			return fmt.Errorf("failed to manage PID file: %w", err)
		}
		defer pid.Release()
		logger.Info("PID file created", zap.String("path", opts.pidPath), zap.Bool("lock", opts.pidLock))
	}

	// Storage is optional
	var store *storage.Store
	if opts.storagePath != "" {
		store, err = storage.NewStore(opts.storagePath, opts.dev, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		if err := store.InitDB(); err != nil {
			store.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		defer func() {
			if cerr := store.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close storage: %w", cerr))
			}
		}()
		logger.Info("persistent storage enabled", zap.String("path", opts.storagePath))
	} else {
		logger.Info("persistent storage disabled (use -storage-path to enable)")
	}

	secret, err := loadSecret(opts)
	if err != nil {
		return err
	}
	tokens, err := http.NewTokens(secret)
	if err != nil {
		return err
	}

	rooms := hub.New(store, logger)
	app := http.NewFiberApp(rooms, tokens, opts.dev, logger)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("chess relay listening",
			zap.String("api", "http://"+opts.addr+"/api/v1/rooms"),
			zap.String("live", "ws://"+opts.addr+"/live"),
			zap.String("health", "http://"+opts.addr+"/health"),
			zap.Bool("dev", opts.dev))
		listenErr <- app.Listen(opts.addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-listenErr:
		return fmt.Errorf("listen: %w", err)
	}

	logger.Info("shutting down relay")
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	var errs []error
	if err := app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}
	if store != nil {
		if err := store.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush storage: %w", err))
		}
	}
	logger.Info("relay exited")
	return errors.Join(errs...)
}

// loadSecret picks the join token secret: the flag, a fixed one in dev mode,
// or a random one that invalidates tokens on restart
func loadSecret(opts options) ([]byte, error) {
	switch {
	case opts.jwtSecret != "":
		return []byte(opts.jwtSecret), nil
	case opts.dev:
		return []byte(devJWTSecret), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	return secret, nil
}
