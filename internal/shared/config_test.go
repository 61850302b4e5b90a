package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./ytpod.db" {
			t.Errorf("expected database path ./ytpod.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Backend.URL != "http://127.0.0.1:8090" {
			t.Errorf("expected backend URL http://127.0.0.1:8090, got %s", config.Backend.URL)
		}

		if config.Polling.Interval() != 3*time.Second {
			t.Errorf("expected poll interval 3s, got %v", config.Polling.Interval())
		}

		if config.Forms.MaxRows != 50 {
			t.Errorf("expected max rows 50, got %d", config.Forms.MaxRows)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("Overrides Defaults", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			testConfig := `[backend]
url = "https://pb.example.com"
rate_limit = 2.5

[polling]
interval_ms = 5000

[database]
path = "/custom/path.db"
`
			if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			config, err := LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to load config: %v", err)
			}

			if config.Backend.URL != "https://pb.example.com" {
				t.Errorf("expected backend URL https://pb.example.com, got %s", config.Backend.URL)
			}
			if config.Backend.RateLimit != 2.5 {
				t.Errorf("expected rate limit 2.5, got %v", config.Backend.RateLimit)
			}
			if config.Polling.Interval() != 5*time.Second {
				t.Errorf("expected poll interval 5s, got %v", config.Polling.Interval())
			}
			if config.Database.Path != "/custom/path.db" {
				t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
			}
			if config.Server.Port != 3000 {
				t.Errorf("expected default server port 3000 to survive, got %d", config.Server.Port)
			}
		})

		t.Run("Invalid TOML", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(configPath, []byte("[backend\nurl="), 0644)

			if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Empty Backend URL", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(configPath, []byte("[backend]\nurl = \"\"\n"), 0644)

			if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Missing File", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
				t.Error("expected error for missing file")
			}
		})
	})

	t.Run("ServerConfig", func(t *testing.T) {
		s := ServerConfig{Host: "127.0.0.1", Port: 4000}
		if got := s.CallbackURL(); got != "http://127.0.0.1:4000/callback" {
			t.Errorf("expected callback URL http://127.0.0.1:4000/callback, got %s", got)
		}
	})
}

func TestEnv(t *testing.T) {
	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv(EnvBackendURL, "https://env.example.com")
		t.Setenv(EnvDatabasePath, "/tmp/env.db")
		t.Setenv(EnvPollInterval, "1500")

		config := DefaultConfig()
		if err := ApplyEnv(config); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if config.Backend.URL != "https://env.example.com" {
			t.Errorf("expected backend URL from env, got %s", config.Backend.URL)
		}
		if config.Database.Path != "/tmp/env.db" {
			t.Errorf("expected database path from env, got %s", config.Database.Path)
		}
		if config.Polling.Interval() != 1500*time.Millisecond {
			t.Errorf("expected 1.5s interval, got %v", config.Polling.Interval())
		}
	})

	t.Run("ApplyEnv Invalid Interval", func(t *testing.T) {
		t.Setenv(EnvPollInterval, "soon")

		if err := ApplyEnv(DefaultConfig()); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadEnv", func(t *testing.T) {
		dir := t.TempDir()
		envPath := filepath.Join(dir, ".env")
		if err := os.WriteFile(envPath, []byte("YTPOD_TEST_LOAD_ENV=loaded\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("YTPOD_TEST_LOAD_ENV") })

		if err := LoadEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
			t.Fatalf("expected missing files to be skipped, got %v", err)
		}

		if got := os.Getenv("YTPOD_TEST_LOAD_ENV"); got != "loaded" {
			t.Errorf("expected variable from .env, got %q", got)
		}
	})
}
