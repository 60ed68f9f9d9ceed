package domain

import (
	"encoding/json"
	"time"
)

// SessionStatus is the explicit lifecycle state of a session row. Rows are
// never physically deleted; destroyed sessions stay behind as revoked for
// audit, expired ones are flagged lazily on read.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusExpired SessionStatus = "expired"
	SessionStatusRevoked SessionStatus = "revoked"
)

type Session struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SessionID      string          `gorm:"size:128;uniqueIndex;not null" json:"session_id"`
	Token          string          `gorm:"size:1024" json:"-"`
	Data           json.RawMessage `gorm:"type:jsonb" json:"-"`
	UserID         *uint           `gorm:"index" json:"user_id,omitempty"`
	IPAddress      string          `gorm:"size:64" json:"ip_address"`
	UserAgent      string          `gorm:"size:512" json:"user_agent"`
	CSRFToken      string          `gorm:"size:128" json:"-"`
	Status         SessionStatus   `gorm:"size:16;not null;default:active;index" json:"status"`
	ExpiresAt      time.Time       `gorm:"index;not null" json:"expires_at"`
	LastAccessedAt time.Time       `gorm:"not null" json:"last_accessed_at"`
	RevokedAt      *time.Time      `gorm:"index" json:"revoked_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Live reports whether the session may still authenticate requests.
func (s *Session) Live(now time.Time) bool {
	return s.Status == SessionStatusActive && now.Before(s.ExpiresAt)
}
