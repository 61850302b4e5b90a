package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Session is the signed-in user's auth state, persisted locally between invocations.
//
// A Session is created by login, refreshed when its token nears expiry and soft-deleted by logout
// or account deletion.
type Session struct {
	id         string
	userID     string
	email      string
	name       string
	token      string
	backendURL string
	expiresAt  time.Time
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewSession creates a session for the given user and token. The expiry is read from the token's exp claim.
func NewSession(backendURL, userID, email, name, token string) *Session {
	now := time.Now().UTC()
	s := &Session{
		userID:     userID,
		email:      email,
		name:       name,
		backendURL: backendURL,
		createdAt:  now,
		updatedAt:  now,
	}
	s.SetToken(token)
	return s
}

func (s *Session) ID() string            { return s.id }
func (s *Session) UserID() string        { return s.userID }
func (s *Session) Email() string         { return s.email }
func (s *Session) Name() string          { return s.name }
func (s *Session) Token() string         { return s.token }
func (s *Session) BackendURL() string    { return s.backendURL }
func (s *Session) ExpiresAt() time.Time  { return s.expiresAt }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }
func (s *Session) UpdatedAt() time.Time  { return s.updatedAt }
func (s *Session) DeletedAt() *time.Time { return s.deletedAt }

func (s *Session) SetID(id string)                { s.id = id }
func (s *Session) SetName(name string)            { s.name = name }
func (s *Session) SetEmail(email string)          { s.email = email }
func (s *Session) SetExpiresAt(t time.Time)       { s.expiresAt = t }
func (s *Session) SetCreatedAt(t time.Time)       { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time)       { s.updatedAt = t }
func (s *Session) SetDeletedAt(t *time.Time)      { s.deletedAt = t }
func (s *Session) SetBackendURL(backend string)   { s.backendURL = backend }
func (s *Session) SetUser(id, email, name string) { s.userID, s.email, s.name = id, email, name }

// SetToken replaces the token and re-reads its expiry.
func (s *Session) SetToken(token string) {
	s.token = token
	if exp, ok := TokenExpiry(token); ok {
		s.expiresAt = exp
	} else {
		s.expiresAt = time.Time{}
	}
}

// Expired reports whether the token expires within leeway of now.
// Tokens without an exp claim never expire.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	if s.expiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(s.expiresAt)
}

// Validate checks required fields.
func (s *Session) Validate() error {
	switch {
	case s.userID == "":
		return errors.New("session user id is required")
	case s.token == "":
		return errors.New("session token is required")
	}
	return nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
func TokenExpiry(token string) (time.Time, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, false
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp == 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.Exp, 0).UTC(), true
}
