package database

import (
	"gorm.io/gorm"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Session{},
		&domain.Post{},
		&domain.Comment{},
		&domain.Bookmark{},
		&domain.Like{},
		&domain.IdempotencyRecord{},
	)
}
