package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
)

type IdempotencyState string

const (
	IdempotencyStateNew        IdempotencyState = "new"
	IdempotencyStateReplay     IdempotencyState = "replay"
	IdempotencyStateConflict   IdempotencyState = "conflict"
	IdempotencyStateInProgress IdempotencyState = "in_progress"
)

const idempotencyStatusCompleted = "completed"

type CachedHTTPResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type IdempotencyBeginResult struct {
	State  IdempotencyState
	Cached *CachedHTTPResponse
}

// IdempotencyStore reserves an (scope, key) pair before a mutating request
// runs and records the response afterwards, so a retried request replays
// instead of re-executing.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error)
	Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error
}

type DBIdempotencyStore struct {
	db *gorm.DB
}

func NewDBIdempotencyStore(db *gorm.DB) *DBIdempotencyStore {
	return &DBIdempotencyStore{db: db}
}

func (s *DBIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	now := time.Now().UTC()
	record := domain.IdempotencyRecord{
		Scope:           scope,
		IdempotencyKey:  key,
		FingerprintHash: fingerprint,
		Status:          string(IdempotencyStateNew),
		ExpiresAt:       now.Add(ttl),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if res.Error != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("reserve idempotency key: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}

	var existing domain.IdempotencyRecord
	if err := s.db.WithContext(ctx).
		Where("scope = ? AND idempotency_key = ?", scope, key).
		First(&existing).Error; err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("load idempotency record: %w", err)
	}

	// a past-due reservation is dead weight; take it over instead of
	// surfacing a stale replay or conflict
	if !now.Before(existing.ExpiresAt) {
		err := s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"fingerprint_hash": fingerprint,
				"status":           string(IdempotencyStateNew),
				"response_status":  0,
				"response_body":    []byte(nil),
				"content_type":     "",
				"expires_at":       now.Add(ttl),
			}).Error
		if err != nil {
			return IdempotencyBeginResult{}, fmt.Errorf("reclaim expired idempotency key: %w", err)
		}
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}

	if existing.FingerprintHash != fingerprint {
		return IdempotencyBeginResult{State: IdempotencyStateConflict}, nil
	}
	if existing.Status == idempotencyStatusCompleted {
		return IdempotencyBeginResult{
			State: IdempotencyStateReplay,
			Cached: &CachedHTTPResponse{
				StatusCode:  existing.ResponseStatus,
				ContentType: existing.ContentType,
				Body:        existing.ResponseBody,
			},
		}, nil
	}
	return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
}

func (s *DBIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	err := s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
		Where("scope = ? AND idempotency_key = ? AND fingerprint_hash = ?", scope, key, fingerprint).
		Updates(map[string]any{
			"status":          idempotencyStatusCompleted,
			"response_status": response.StatusCode,
			"response_body":   response.Body,
			"content_type":    response.ContentType,
			"expires_at":      time.Now().UTC().Add(ttl),
		}).Error
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	return nil
}

// CleanupExpired removes at most batch past-due rows and reports how many
// went away. Meant for periodic maintenance, not the request path.
func (s *DBIdempotencyStore) CleanupExpired(ctx context.Context, now time.Time, batch int) (int64, error) {
	if batch < 1 {
		batch = 100
	}
	var ids []uint
	err := s.db.WithContext(ctx).Model(&domain.IdempotencyRecord{}).
		Where("expires_at < ?", now).
		Order("id").
		Limit(batch).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("list expired idempotency records: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Delete(&domain.IdempotencyRecord{}, ids)
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired idempotency records: %w", res.Error)
	}
	return res.RowsAffected, nil
}
