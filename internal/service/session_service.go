package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/security"
)

// SessionData is what callers hand to Set: the opaque application payload
// plus request metadata. Metadata is stored in dedicated columns, never
// inside the payload.
type SessionData struct {
	UserID    *uint
	IPAddress string
	UserAgent string
	Values    json.RawMessage
}

// SessionServiceInterface is the session store contract: durable get/set/
// touch/destroy plus the audit and bulk operations the admin surface needs.
// Expired sessions are destroyed lazily on Get; destroyed rows are retained.
type SessionServiceInterface interface {
	Get(sessionID string) (*domain.Session, error)
	Set(sessionID string, data SessionData) (*domain.Session, error)
	Touch(sessionID string) error
	Destroy(sessionID string) error
	All() ([]domain.Session, error)
	Length() (int64, error)
	Clear() (int64, error)
	InvalidateUserSessions(userID uint) (int64, error)
	CleanupExpired() (int64, error)
	EnsureCSRFToken(sessionID string) (string, error)
	NewSessionID() string
	TTL() time.Duration
}

type SessionService struct {
	repo   repository.SessionRepository
	tokens *security.SessionTokenManager
	ttl    time.Duration
}

func NewSessionService(repo repository.SessionRepository, tokens *security.SessionTokenManager, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionService{repo: repo, tokens: tokens, ttl: ttl}
}

func (s *SessionService) NewSessionID() string { return uuid.NewString() }

func (s *SessionService) TTL() time.Duration { return s.ttl }

// Get returns the live session for the id. A row past its expiry is flagged
// expired on the way out and reported as not found, so callers never see a
// stale session.
func (s *SessionService) Get(sessionID string) (*domain.Session, error) {
	session, err := s.repo.FindBySessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusActive {
		return nil, repository.ErrSessionNotFound
	}
	now := time.Now().UTC()
	if !now.Before(session.ExpiresAt) {
		if err := s.repo.MarkExpired(sessionID); err != nil {
			return nil, fmt.Errorf("lazy expire session: %w", err)
		}
		observability.RecordSessionEvent(context.Background(), "get", "lazy_expired")
		return nil, repository.ErrSessionNotFound
	}
	return session, nil
}

// Set upserts the session row. Expiry always restarts at now + TTL, a CSRF
// token and the signed secondary credential are generated on first write
// and preserved afterwards.
func (s *SessionService) Set(sessionID string, data SessionData) (*domain.Session, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		SessionID:      sessionID,
		Data:           data.Values,
		UserID:         data.UserID,
		IPAddress:      data.IPAddress,
		UserAgent:      data.UserAgent,
		Status:         domain.SessionStatusActive,
		ExpiresAt:      now.Add(s.ttl),
		LastAccessedAt: now,
	}
	if session.Data == nil {
		session.Data = json.RawMessage(`{}`)
	}

	existing, err := s.repo.FindBySessionID(sessionID)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == domain.SessionStatusActive {
		session.CSRFToken = existing.CSRFToken
	}

	if session.CSRFToken == "" {
		token, err := security.NewCSRFToken()
		if err != nil {
			return nil, fmt.Errorf("generate csrf token: %w", err)
		}
		session.CSRFToken = token
	}

	signed, err := s.tokens.Sign(sessionID, session.UserID, s.ttl)
	if err != nil {
		return nil, err
	}
	session.Token = signed

	if err := s.repo.Upsert(session); err != nil {
		observability.RecordSessionEvent(context.Background(), "set", "error")
		return nil, err
	}
	observability.RecordSessionEvent(context.Background(), "set", "success")
	return session, nil
}

// Touch implements sliding expiry: the window restarts at now + TTL without
// rewriting the payload.
func (s *SessionService) Touch(sessionID string) error {
	now := time.Now().UTC()
	if err := s.repo.Touch(sessionID, now.Add(s.ttl), now); err != nil {
		return err
	}
	observability.RecordSessionEvent(context.Background(), "touch", "success")
	return nil
}

func (s *SessionService) Destroy(sessionID string) error {
	if _, err := s.repo.Revoke(sessionID); err != nil {
		observability.RecordSessionEvent(context.Background(), "destroy", "error")
		return err
	}
	observability.RecordSessionEvent(context.Background(), "destroy", "success")
	return nil
}

func (s *SessionService) All() ([]domain.Session, error) {
	return s.repo.ListActive()
}

func (s *SessionService) Length() (int64, error) {
	return s.repo.CountActive()
}

func (s *SessionService) Clear() (int64, error) {
	n, err := s.repo.RevokeAll()
	if err != nil {
		return 0, err
	}
	observability.RecordSessionEvent(context.Background(), "clear", "success")
	return n, nil
}

func (s *SessionService) InvalidateUserSessions(userID uint) (int64, error) {
	n, err := s.repo.RevokeByUserID(userID)
	if err != nil {
		observability.RecordSessionEvent(context.Background(), "invalidate_user", "error")
		return 0, err
	}
	observability.RecordSessionEvent(context.Background(), "invalidate_user", "success")
	return n, nil
}

func (s *SessionService) CleanupExpired() (int64, error) {
	return s.repo.ExpirePastDue(time.Now().UTC())
}

// EnsureCSRFToken returns the session's anti-forgery token, generating and
// persisting one for sessions created before the token existed.
func (s *SessionService) EnsureCSRFToken(sessionID string) (string, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return "", err
	}
	if session.CSRFToken != "" {
		return session.CSRFToken, nil
	}
	token, err := security.NewCSRFToken()
	if err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	session.CSRFToken = token
	if err := s.repo.Upsert(session); err != nil {
		return "", err
	}
	return token, nil
}
