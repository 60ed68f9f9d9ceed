package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository owns the sessions table. Rows transition
// active -> expired | revoked and are retained afterwards for audit;
// nothing here deletes. Concurrent writes to one session id are
// last-write-wins, there is no optimistic-lock column.
type SessionRepository interface {
	FindBySessionID(sessionID string) (*domain.Session, error)
	Upsert(session *domain.Session) error
	Touch(sessionID string, expiresAt, lastAccessedAt time.Time) error
	MarkExpired(sessionID string) error
	Revoke(sessionID string) (bool, error)
	ListActive() ([]domain.Session, error)
	CountActive() (int64, error)
	RevokeAll() (int64, error)
	RevokeByUserID(userID uint) (int64, error)
	ExpirePastDue(now time.Time) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) FindBySessionID(sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", "find", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "session", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "find", "success")
	return &session, nil
}

func (r *GormSessionRepository) Upsert(session *domain.Session) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"token", "data", "user_id", "ip_address", "user_agent",
			"csrf_token", "status", "expires_at", "last_accessed_at",
			"revoked_at", "updated_at",
		}),
	}).Create(session).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "upsert", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "upsert", "success")
	return nil
}

func (r *GormSessionRepository) Touch(sessionID string, expiresAt, lastAccessedAt time.Time) error {
	res := r.db.Model(&domain.Session{}).
		Where("session_id = ? AND status = ?", sessionID, domain.SessionStatusActive).
		Updates(map[string]any{
			"expires_at":       expiresAt,
			"last_accessed_at": lastAccessedAt,
		})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "touch", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "session", "touch", "not_found")
		return ErrSessionNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "touch", "success")
	return nil
}

func (r *GormSessionRepository) MarkExpired(sessionID string) error {
	res := r.db.Model(&domain.Session{}).
		Where("session_id = ? AND status = ?", sessionID, domain.SessionStatusActive).
		Update("status", domain.SessionStatusExpired)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "mark_expired", "error")
		return res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "mark_expired", "success")
	return nil
}

// Revoke is idempotent: the bool reports whether this call performed the
// transition.
func (r *GormSessionRepository) Revoke(sessionID string) (bool, error) {
	now := time.Now().UTC()
	res := r.db.Model(&domain.Session{}).
		Where("session_id = ? AND status <> ?", sessionID, domain.SessionStatusRevoked).
		Updates(map[string]any{
			"status":     domain.SessionStatusRevoked,
			"revoked_at": now,
		})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormSessionRepository) ListActive() ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.Where("status = ?", domain.SessionStatusActive).
		Order("last_accessed_at desc").Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "list_active", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "list_active", "success")
	return sessions, nil
}

func (r *GormSessionRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&domain.Session{}).
		Where("status = ?", domain.SessionStatusActive).Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "count_active", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "count_active", "success")
	return count, nil
}

func (r *GormSessionRepository) RevokeAll() (int64, error) {
	now := time.Now().UTC()
	res := r.db.Model(&domain.Session{}).
		Where("status = ?", domain.SessionStatusActive).
		Updates(map[string]any{
			"status":     domain.SessionStatusRevoked,
			"revoked_at": now,
		})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke_all", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke_all", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionRepository) RevokeByUserID(userID uint) (int64, error) {
	now := time.Now().UTC()
	res := r.db.Model(&domain.Session{}).
		Where("user_id = ? AND status = ?", userID, domain.SessionStatusActive).
		Updates(map[string]any{
			"status":     domain.SessionStatusRevoked,
			"revoked_at": now,
		})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_user", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke_by_user", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionRepository) ExpirePastDue(now time.Time) (int64, error) {
	res := r.db.Model(&domain.Session{}).
		Where("status = ? AND expires_at <= ?", domain.SessionStatusActive, now).
		Update("status", domain.SessionStatusExpired)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "expire_past_due", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "expire_past_due", "success")
	return res.RowsAffected, nil
}
