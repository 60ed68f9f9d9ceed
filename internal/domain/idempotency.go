package domain

import "time"

// IdempotencyRecord deduplicates retried mutating requests. One row per
// (scope, key); the stored response is replayed verbatim on a retry that
// carries the same fingerprint.
type IdempotencyRecord struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	Scope           string    `gorm:"size:256;not null;uniqueIndex:idx_idempotency_scope_key" json:"-"`
	IdempotencyKey  string    `gorm:"size:128;not null;uniqueIndex:idx_idempotency_scope_key" json:"-"`
	FingerprintHash string    `gorm:"size:128;not null" json:"-"`
	Status          string    `gorm:"size:32;not null;index" json:"-"`
	ResponseStatus  int       `json:"-"`
	ResponseBody    []byte    `gorm:"type:bytes" json:"-"`
	ContentType     string    `gorm:"size:128" json:"-"`
	ExpiresAt       time.Time `gorm:"index;not null" json:"-"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}
