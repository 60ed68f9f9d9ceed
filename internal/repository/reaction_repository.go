package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
)

var ErrBookmarkNotFound = errors.New("bookmark not found")

// BookmarkRepository and LikeRepository cover reader reactions to posts.
// Both are keyed by (user, post) with a unique index; saving twice is an
// upsert, removing a missing row is not an error for likes but is for
// bookmarks (bookmarks carry user data in the note).
type BookmarkRepository interface {
	Save(bookmark *domain.Bookmark) error
	ListByUser(userID uint) ([]domain.Bookmark, error)
	Remove(userID, postID uint) error
}

type LikeRepository interface {
	Add(userID, postID uint) error
	Remove(userID, postID uint) error
	CountByPost(postID uint) (int64, error)
	Exists(userID, postID uint) (bool, error)
}

type GormBookmarkRepository struct{ db *gorm.DB }

func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &GormBookmarkRepository{db: db}
}

func (r *GormBookmarkRepository) Save(bookmark *domain.Bookmark) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"note", "updated_at"}),
	}).Create(bookmark).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "bookmark", "save", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "bookmark", "save", "success")
	return nil
}

func (r *GormBookmarkRepository) ListByUser(userID uint) ([]domain.Bookmark, error) {
	var bookmarks []domain.Bookmark
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&bookmarks).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "bookmark", "list_by_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "bookmark", "list_by_user", "success")
	return bookmarks, nil
}

func (r *GormBookmarkRepository) Remove(userID, postID uint) error {
	res := r.db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&domain.Bookmark{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "bookmark", "remove", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "bookmark", "remove", "not_found")
		return ErrBookmarkNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "bookmark", "remove", "success")
	return nil
}

type GormLikeRepository struct{ db *gorm.DB }

func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &GormLikeRepository{db: db}
}

func (r *GormLikeRepository) Add(userID, postID uint) error {
	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Like{UserID: userID, PostID: postID}).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "like", "add", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "like", "add", "success")
	return nil
}

func (r *GormLikeRepository) Remove(userID, postID uint) error {
	err := r.db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&domain.Like{}).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "like", "remove", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "like", "remove", "success")
	return nil
}

func (r *GormLikeRepository) CountByPost(postID uint) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Like{}).Where("post_id = ?", postID).Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "like", "count_by_post", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "like", "count_by_post", "success")
	return count, nil
}

func (r *GormLikeRepository) Exists(userID, postID uint) (bool, error) {
	var count int64
	err := r.db.Model(&domain.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "like", "exists", "error")
		return false, err
	}
	observability.RecordRepositoryOperation(context.Background(), "like", "exists", "success")
	return count > 0, nil
}
