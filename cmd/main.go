package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytpod/internal/repositories"
	"github.com/desertthunder/ytpod/internal/services"
	"github.com/desertthunder/ytpod/internal/session"
	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(".env"); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}
	if err := shared.ApplyEnv(config); err != nil {
		logger.Fatalf("invalid environment: %v", err)
	}

	opts := RunnerOpts{Config: config, ConfigPath: configPath, Logger: logger}

	if db, err := shared.OpenDatabase(config.Database); err != nil {
		logger.Warn("session database unavailable, run 'ytpod setup'", "error", err)
	} else {
		defer db.Close()
		wireBackend(&opts, config, db, logger)
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "ytpod",
		Usage:    "Turn YouTube videos into podcast episodes",
		Version:  "0.1.0",
		Commands: runner.register(),
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Enable debug logging"},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			return
		case errors.Is(err, shared.ErrNotAuthenticated):
			logger.Error("not signed in, run 'ytpod auth login'")
		case runner.Notified():
		default:
			logger.Errorf("application error: %v", err)
		}
		stop()
		os.Exit(1)
	}
}

// wireBackend builds the session manager and the PocketBase clients that share it.
func wireBackend(opts *RunnerOpts, config *shared.Config, db *sql.DB, logger *log.Logger) {
	manager := session.NewManager(session.ManagerOpts{
		Repo:       repositories.NewSessionRepository(db),
		BackendURL: config.Backend.URL,
		LockPath:   filepath.Join(filepath.Dir(config.Database.Path), ".ytpod-session.lock"),
		Timeout:    config.Backend.Timeout(),
		Logger:     shared.WithLogger(logger, "component", "session"),
	})

	pb := services.NewPocketBase(services.PocketBaseOpts{
		BaseURL:     config.Backend.URL,
		HTTPClient:  &http.Client{Timeout: config.Backend.Timeout()},
		TokenSource: manager,
		RateLimit:   config.Backend.RateLimit,
		Logger:      shared.WithLogger(logger, "component", "pocketbase"),
	})
	manager.SetRefresher(pb)

	opts.Service = services.NewPodcastService(pb, manager)
	opts.Auth = pb
	opts.API = services.NewAPIService(config.Backend.URL, pb.HTTPClient())
	opts.Sessions = manager
}
