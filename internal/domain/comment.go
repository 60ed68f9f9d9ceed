package domain

import "time"

// CommentStatus drives moderation: comments land as pending, admins either
// approve or flag them. Only approved comments are served publicly.
type CommentStatus string

const (
	CommentStatusPending  CommentStatus = "pending"
	CommentStatusApproved CommentStatus = "approved"
	CommentStatusFlagged  CommentStatus = "flagged"
)

type Comment struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	PostID     uint          `gorm:"index;not null" json:"post_id"`
	UserID     *uint         `gorm:"index" json:"user_id,omitempty"`
	AuthorName string        `gorm:"size:64" json:"author_name"`
	Content    string        `gorm:"type:text;not null" json:"content"`
	Status     CommentStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
