package domain

import "time"

type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Slug          string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	Excerpt       string    `gorm:"size:512" json:"excerpt"`
	AuthorID      uint      `gorm:"index;not null" json:"author_id"`
	ThemeCategory string    `gorm:"size:64;index" json:"theme_category"`
	CoverImageKey string    `gorm:"size:255" json:"cover_image_key,omitempty"`
	ReadingTime   int       `gorm:"not null;default:0" json:"reading_time"`
	Published     bool      `gorm:"not null;default:true;index" json:"published"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
