package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates config.toml from the embedded template when missing, then initializes the
// session database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	if err := shared.ApplyEnv(config); err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	if config.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Database.Path), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	pending, err := shared.PendingMigrations(db)
	db.Close()
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}

	r.logger.Info("running database migrations", "pending", len(pending))
	migrated, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return err
	}
	defer migrated.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Config:   %s\n", configPath)
	r.writePlain("✓ Database: %s (%d migration(s) applied)\n", config.Database.Path, len(pending))
	r.writePlain("✓ Backend:  %s\n", config.Backend.URL)
	r.writePlainln("Next steps:")
	return r.writePlain("1. Run 'ytpod auth login' to sign in\n2. Run 'ytpod tui' to open the dashboard\n")
}
