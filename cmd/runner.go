package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytpod/internal/cache"
	"github.com/desertthunder/ytpod/internal/formatter"
	"github.com/desertthunder/ytpod/internal/services"
	"github.com/desertthunder/ytpod/internal/session"
	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/desertthunder/ytpod/internal/tasks"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Authenticator is the subset of the PocketBase client used by the auth commands.
type Authenticator interface {
	AuthMethods(ctx context.Context) (*services.AuthMethods, error)
	AuthWithOAuth2(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*services.AuthResponse, error)
	AuthWithPassword(ctx context.Context, identity, password string) (*services.AuthResponse, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	svc        services.Service
	auth       Authenticator
	api        *services.APIService
	sessions   *session.Manager
	store      *cache.Store
	queries    *tasks.Queries
	mutations  *tasks.Mutations
	errors     *tasks.ErrorHandler
	logger     *log.Logger
	output     io.Writer
	errOutput  io.Writer
	openURL    func(string) error
	notified   atomic.Bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Service    services.Service
	Auth       Authenticator
	API        *services.APIService
	Sessions   *session.Manager
	Logger     *log.Logger
	Output     io.Writer
	ErrOutput  io.Writer
	OpenURL    func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	// a nil *session.Manager must not become a non-nil interface
	var sw tasks.SessionWriter
	if opts.Sessions != nil {
		sw = opts.Sessions
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		svc:        opts.Service,
		auth:       opts.Auth,
		api:        opts.API,
		sessions:   opts.Sessions,
		store:      cache.NewStore(shared.WithLogger(opts.Logger, "component", "cache")),
		logger:     opts.Logger,
		output:     opts.Output,
		errOutput:  opts.ErrOutput,
		openURL:    opts.OpenURL,
	}

	// failures are printed once, by the notifier
	stderr := tasks.NewWriterNotifier(opts.ErrOutput)
	r.errors = tasks.NewErrorHandler(tasks.NotifierFunc(func(title, description string) {
		r.notified.Store(true)
		stderr.Notify(title, description)
	}), nil)
	r.queries = tasks.NewQueries(opts.Service, r.store, opts.Logger)
	r.mutations = tasks.NewMutations(opts.Service, r.store, r.errors, sw)
	return r
}

// Notified reports whether a failure was already printed by the error handler.
func (r *Runner) Notified() bool {
	return r.notified.Load()
}

// SetLogger replaces the logger, as the TUI does to keep log lines off the screen.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, accountCommand, podcastsCommand, itemsCommand, jobsCommand,
		webhookCommand, keysCommand, usageCommand, billingCommand, issueCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireService fails commands that talk to the backend when no client was configured.
func (r *Runner) requireService() error {
	if r.svc == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func parseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", formatTable:
		return formatTable, nil
	case formatJSON, formatYAML:
		return f, nil
	case "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("%w: --format must be table, json or yaml, got %q", shared.ErrInvalidFlag, s)
	}
}

// render writes data as JSON or YAML, or calls table for the human readable form.
func (r *Runner) render(cmd *cli.Command, data any, table func() error) error {
	format, err := parseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		return r.writeJSON(data, true)
	case formatYAML:
		return r.writeYAML(data)
	default:
		return table()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeYAML(data any) error {
	output, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// writeTable renders a go-pretty table followed by a newline.
func (r *Runner) writeTable(headers []string, rows [][]string, aligns []formatter.Align) error {
	return r.writePlain("%s\n", formatter.RenderTable(headers, rows, aligns))
}

// confirm asks a yes/no question on the terminal. --yes skips the prompt.
func (r *Runner) confirm(cmd *cli.Command, question string) bool {
	if cmd.Bool("yes") {
		return true
	}
	r.writePlain("%s [y/N]: ", question)

	in := cmd.Root().Reader
	if in == nil {
		in = os.Stdin
	}

	var answer string
	if _, err := fmt.Fscanln(in, &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
