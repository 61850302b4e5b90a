package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/shared"
)

const sessionColumns = `id, user_id, email, name, token, backend_url, expires_at, created_at, updated_at, deleted_at`

// SessionRepository implements [models.Repository] for [models.Session] persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func expiresAt(s *models.Session) any {
	if s.ExpiresAt().IsZero() {
		return nil
	}
	return s.ExpiresAt()
}

// Create inserts a new session with a generated ID
func (r *SessionRepository) Create(s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO sessions (id, user_id, email, name, token, backend_url, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, id, s.UserID(), s.Email(), s.Name(), s.Token(), s.BackendURL(),
		expiresAt(s), s.CreatedAt(), s.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	s.SetID(id)
	return nil
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		id, userID, email, name, token, backendURL string
		expires                                    sql.NullTime
		createdAt, updatedAt                       time.Time
		deletedAt                                  sql.NullTime
	)

	if err := row.Scan(&id, &userID, &email, &name, &token, &backendURL, &expires, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	s := models.NewSession(backendURL, userID, email, name, token)
	s.SetID(id)
	s.SetCreatedAt(createdAt)
	s.SetUpdatedAt(updatedAt)
	if expires.Valid {
		s.SetExpiresAt(expires.Time)
	}
	if deletedAt.Valid {
		s.SetDeletedAt(&deletedAt.Time)
	}
	return s, nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`

	s, err := scanSession(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return s, nil
}

// Active returns the most recently updated live session for backendURL.
func (r *SessionRepository) Active(backendURL string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE backend_url = ? AND deleted_at IS NULL
		ORDER BY updated_at DESC
		LIMIT 1
	`

	s, err := scanSession(r.db.QueryRow(query, backendURL))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no active session", shared.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return s, nil
}

// Update stores the token, expiry and profile fields of an existing session
func (r *SessionRepository) Update(s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	s.SetUpdatedAt(now)

	query := `
		UPDATE sessions
		SET user_id = ?, email = ?, name = ?, token = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, s.UserID(), s.Email(), s.Name(), s.Token(), expiresAt(s), now, s.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return expectOne(result, "session", s.ID())
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return expectOne(result, "session", id)
}

// DeleteAll soft-deletes every live session for backendURL and returns how many were ended.
func (r *SessionRepository) DeleteAll(backendURL string) (int64, error) {
	result, err := r.db.Exec(`UPDATE sessions SET deleted_at = ? WHERE backend_url = ? AND deleted_at IS NULL`, time.Now().UTC(), backendURL)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// List retrieves all live sessions, newest first
func (r *SessionRepository) List() ([]*models.Session, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

var _ models.Repository[*models.Session] = (*SessionRepository)(nil)
