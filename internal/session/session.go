// package session owns the signed-in user's auth state.
//
// A [Manager] is created at startup, handed to the PocketBase client as its [oauth2.TokenSource],
// and torn down by logout and account deletion. Sessions are persisted through
// [repositories.SessionRepository] so separate invocations share one sign-in; refreshes take a
// file lock so two processes never refresh the same token at once.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/repositories"
	"github.com/desertthunder/ytpod/internal/services"
	"github.com/desertthunder/ytpod/internal/shared"
	"github.com/gofrs/flock"
	"golang.org/x/oauth2"
)

// DefaultLeeway is how close to expiry a token may get before it is refreshed.
const DefaultLeeway = 5 * time.Minute

const lockRetryDelay = 50 * time.Millisecond

// Refresher exchanges a valid token for a new one.
type Refresher interface {
	AuthRefresh(ctx context.Context, token string) (*services.AuthResponse, error)
}

// Manager tracks the current session for one backend.
type Manager struct {
	mu        sync.Mutex
	repo      *repositories.SessionRepository
	backend   string
	refresher Refresher
	lock      *flock.Flock
	leeway    time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *log.Logger
	current   *models.Session
}

// ManagerOpts configures [NewManager].
type ManagerOpts struct {
	Repo       *repositories.SessionRepository
	BackendURL string
	Refresher  Refresher
	LockPath   string
	Leeway     time.Duration
	Timeout    time.Duration // bound on lock acquisition plus refresh
	Logger     *log.Logger
	Now        func() time.Time
}

// NewManager creates a session manager. Call [Manager.SetRefresher] when the refresher is built after the manager.
func NewManager(opts ManagerOpts) *Manager {
	if opts.Leeway <= 0 {
		opts.Leeway = DefaultLeeway
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		repo:      opts.Repo,
		backend:   opts.BackendURL,
		refresher: opts.Refresher,
		leeway:    opts.Leeway,
		timeout:   opts.Timeout,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if opts.LockPath != "" {
		m.lock = flock.New(opts.LockPath)
	}
	return m
}

// SetRefresher sets the client used to refresh tokens.
func (m *Manager) SetRefresher(r Refresher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresher = r
}

// withLock runs fn while holding the cross-process session lock.
func (m *Manager) withLock(ctx context.Context, fn func() error) error {
	if m.lock == nil {
		return fn()
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	ok, err := m.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", shared.ErrSessionLocked, m.lock.Path())
		}
		return fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionLocked, m.lock.Path())
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("failed to release session lock", "error", err)
		}
	}()

	return fn()
}

// Current returns the active session, loading it from the database on first use.
func (m *Manager) Current() (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() (*models.Session, error) {
	if m.current != nil {
		return m.current, nil
	}
	if m.repo == nil {
		return nil, shared.ErrNotAuthenticated
	}

	s, err := m.repo.Active(m.backend)
	if err != nil {
		return nil, err
	}
	m.current = s
	return s, nil
}

// UserID returns the signed-in user's id.
func (m *Manager) UserID() (string, error) {
	s, err := m.Current()
	if err != nil {
		return "", err
	}
	return s.UserID(), nil
}

// Begin replaces any existing session for the backend with one built from auth.
func (m *Manager) Begin(ctx context.Context, auth *services.AuthResponse) (*models.Session, error) {
	if auth == nil || auth.Token == "" {
		return nil, fmt.Errorf("%w: empty auth response", shared.ErrAuthFailed)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := models.NewSession(m.backend, auth.Record.ID, auth.Record.Email, auth.Record.Name, auth.Token)

	err := m.withLock(ctx, func() error {
		if m.repo == nil {
			return nil
		}
		if _, err := m.repo.DeleteAll(m.backend); err != nil {
			return err
		}
		return m.repo.Create(s)
	})
	if err != nil {
		return nil, err
	}

	m.current = s
	m.logger.Info("session started", "user", s.Email(), "expires", s.ExpiresAt())
	return s, nil
}

// End removes every session for the backend. Ending without a session is not an error.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.withLock(ctx, func() error {
		if m.repo == nil {
			return nil
		}
		_, err := m.repo.DeleteAll(m.backend)
		return err
	})
	if err != nil {
		return err
	}

	m.current = nil
	m.logger.Info("session ended")
	return nil
}

// SetName updates the locally stored display name after a rename.
func (m *Manager) SetName(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load()
	if err != nil {
		return err
	}
	s.SetName(name)
	if m.repo == nil {
		return nil
	}
	return m.repo.Update(s)
}

// Token implements [oauth2.TokenSource]. Tokens within the leeway of expiry are refreshed first.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load()
	if err != nil {
		return nil, err
	}

	now := m.now()
	if s.Expired(now, m.leeway) {
		if s.Expired(now, 0) {
			return nil, fmt.Errorf("%w: sign in again with `ytpod auth login`", shared.ErrTokenExpired)
		}
		if s, err = m.refresh(context.Background(), s); err != nil {
			return nil, err
		}
	}

	return &oauth2.Token{AccessToken: s.Token(), TokenType: "Bearer", Expiry: s.ExpiresAt()}, nil
}

// Refresh forces a token refresh.
func (m *Manager) Refresh(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load()
	if err != nil {
		return nil, err
	}
	return m.refresh(ctx, s)
}

func (m *Manager) refresh(ctx context.Context, s *models.Session) (*models.Session, error) {
	if m.refresher == nil {
		return nil, fmt.Errorf("%w: no refresher configured", shared.ErrRefreshFailed)
	}

	err := m.withLock(ctx, func() error {
		// another process may have refreshed while we waited on the lock
		if m.repo != nil {
			if latest, err := m.repo.Active(m.backend); err == nil && latest.Token() != s.Token() && !latest.Expired(m.now(), m.leeway) {
				s = latest
				return nil
			}
		}

		ctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		res, err := m.refresher.AuthRefresh(ctx, s.Token())
		if err != nil {
			return err
		}

		s.SetToken(res.Token)
		if res.Record.ID != "" {
			s.SetUser(res.Record.ID, res.Record.Email, res.Record.Name)
		}
		if m.repo == nil {
			return nil
		}
		return m.repo.Update(s)
	})
	if err != nil {
		return nil, err
	}

	m.current = s
	m.logger.Debug("session refreshed", "expires", s.ExpiresAt())
	return s, nil
}

var _ oauth2.TokenSource = (*Manager)(nil)
