package main

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/ytpod/internal/services"
	"github.com/desertthunder/ytpod/internal/session"
	"github.com/desertthunder/ytpod/internal/shared"
	tu "github.com/desertthunder/ytpod/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			svc := &tu.MockService{}
			api := &services.APIService{}
			sessions := session.NewManager(session.ManagerOpts{})

			runner := NewRunner(RunnerOpts{
				Config:   config,
				Logger:   logger,
				Output:   output,
				Service:  svc,
				API:      api,
				Sessions: sessions,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.svc != svc {
				t.Error("expected service to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.sessions != sessions {
				t.Error("expected sessions to be set")
			}
			if runner.store == nil || runner.queries == nil || runner.mutations == nil || runner.errors == nil {
				t.Error("expected cache, queries, mutations and error handler to be built")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout and stderr", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.errOutput != os.Stderr {
				t.Error("expected error output to default to os.Stderr")
			}
		})

		t.Run("with nil browser opener uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.openURL == nil {
				t.Error("expected openURL to be set")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("without a service commands fail", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			err := runner.requireService()
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes pretty JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "  \"key\": \"value\"") {
				t.Errorf("expected indented JSON, got %q", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]int{"count": 42}
			if err := runner.writeJSON(data, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if result := output.String(); result != "{\"count\":42}\n" {
				t.Errorf("expected compact JSON, got %q", result)
			}
		})

		t.Run("handles marshal error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), true)
			if err == nil {
				t.Fatal("expected error for unmarshalable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writeYAML", func(t *testing.T) {
		t.Run("writes YAML", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeYAML(map[string]string{"title": "Weekly"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "title: Weekly\n" {
				t.Errorf("expected YAML mapping, got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeYAML(map[string]string{"title": "Weekly"})
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "\ndone\n" {
				t.Errorf("expected '\\ndone\\n', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("parseFormat", func(t *testing.T) {
		tests := []struct {
			in      string
			want    string
			wantErr bool
		}{
			{"", formatTable, false},
			{"table", formatTable, false},
			{"JSON", formatJSON, false},
			{" yaml ", formatYAML, false},
			{"yml", formatYAML, false},
			{"csv", "", true},
		}

		for _, tt := range tests {
			got, err := parseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidFlag) {
					t.Errorf("parseFormat(%q): expected ErrInvalidFlag, got %v", tt.in, err)
				}
				continue
			}
			if err != nil {
				t.Errorf("parseFormat(%q): expected no error, got %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseFormat(%q): expected %q, got %q", tt.in, tt.want, got)
			}
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Fatal("expected at least one command to be registered")
		}

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
				continue
			}
			names[cmd.Name] = true
		}

		for _, name := range []string{"setup", "auth", "account", "podcasts", "items", "jobs", "webhook", "keys", "usage", "billing", "issue", "api", "tui"} {
			if !names[name] {
				t.Errorf("expected command %q to be registered", name)
			}
		}
	})
}
