package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/ytpod/internal/server"
	"github.com/desertthunder/ytpod/internal/services"
	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/urfave/cli/v3"
)

const oauthTimeout = 2 * time.Minute

// AuthLogin signs in through an OAuth2 provider, or with email and password when --email is set.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.auth == nil || r.sessions == nil {
		return fmt.Errorf("%w: backend client not initialized", shared.ErrServiceUnavailable)
	}

	var (
		auth *services.AuthResponse
		err  error
	)

	if email := cmd.String("email"); email != "" {
		password := cmd.String("password")
		if password == "" {
			return fmt.Errorf("%w: --password (or YTPOD_PASSWORD) is required with --email", shared.ErrMissingArgument)
		}
		r.logger.Info("signing in with password", "email", email)
		auth, err = r.auth.AuthWithPassword(ctx, email, password)
	} else {
		auth, err = r.doOAuth(ctx, cmd.String("provider"))
	}
	if err != nil {
		return err
	}

	s, err := r.sessions.Begin(ctx, auth)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	r.store.Clear()
	r.writePlainln("✓ Signed in as %s", s.Email())
	return r.writePlain("Session expires %s\n", s.ExpiresAt().Local().Format(time.RFC1123))
}

// doOAuth runs the provider redirect flow: it serves the callback locally, sends the user to the
// provider's consent page and trades the returned code for a backend session.
func (r *Runner) doOAuth(ctx context.Context, providerName string) (*services.AuthResponse, error) {
	methods, err := r.auth.AuthMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth methods: %w", err)
	}

	provider, ok := methods.Provider(providerName)
	if !ok {
		names := make([]string, 0, len(methods.OAuth2.Providers))
		for _, p := range methods.OAuth2.Providers {
			names = append(names, p.Name)
		}
		return nil, fmt.Errorf("%w: provider %q is not enabled (available: %v)", shared.ErrInvalidFlag, providerName, names)
	}

	redirectURL := r.config.Server.CallbackURL()
	exchange := func(ctx context.Context, code string) (*services.AuthResponse, error) {
		return r.auth.AuthWithOAuth2(ctx, provider.Name, code, provider.CodeVerifier, redirectURL)
	}

	oauthHandler := server.NewOAuthHandler(provider.State, exchange)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	serverAddr := r.config.Server.Addr()
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	// PocketBase leaves redirect_uri empty at the end of authURL
	authURL := provider.AuthURL + url.QueryEscape(redirectURL)

	r.writePlain("→ Opening browser to sign in with %s...\n", providerLabel(provider))
	if err := r.openURL(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(oauthTimeout)
	defer timeout.Stop()

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		shutdown()
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		shutdown()
		return nil, ctx.Err()
	}
	shutdown()

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
	}
	if result.Auth == nil {
		return nil, fmt.Errorf("%w: no session received", shared.ErrAuthFailed)
	}
	return result.Auth, nil
}

func providerLabel(p *services.OAuth2Provider) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// AuthLogout removes the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if r.sessions == nil {
		return fmt.Errorf("%w: session store not initialized", shared.ErrServiceUnavailable)
	}
	if err := r.sessions.End(ctx); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	r.store.Clear()
	return r.writePlain("✓ Signed out\n")
}

type whoami struct {
	UserID    string    `json:"user_id" yaml:"user_id"`
	Email     string    `json:"email" yaml:"email"`
	Name      string    `json:"name" yaml:"name"`
	Backend   string    `json:"backend" yaml:"backend"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

// AuthWhoami shows the stored session.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	if r.sessions == nil {
		return shared.ErrNotAuthenticated
	}
	s, err := r.sessions.Current()
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotAuthenticated
		}
		return err
	}

	info := whoami{
		UserID:    s.UserID(),
		Email:     s.Email(),
		Name:      s.Name(),
		Backend:   s.BackendURL(),
		ExpiresAt: s.ExpiresAt(),
	}

	return r.render(cmd, info, func() error {
		r.writePlainHeader("Signed in")
		r.writePlain("Name:    %s\n", info.Name)
		r.writePlain("Email:   %s\n", info.Email)
		r.writePlain("User:    %s\n", info.UserID)
		r.writePlain("Backend: %s\n", info.Backend)
		return r.writePlain("Expires: %s\n", info.ExpiresAt.Local().Format(time.RFC1123))
	})
}
