package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
)

var ErrCommentNotFound = errors.New("comment not found")

type CommentRepository interface {
	Create(comment *domain.Comment) error
	FindByID(id uint) (*domain.Comment, error)
	ListByPost(postID uint, status domain.CommentStatus) ([]domain.Comment, error)
	ListByStatus(status domain.CommentStatus) ([]domain.Comment, error)
	UpdateStatus(id uint, status domain.CommentStatus) error
	Delete(id uint) error
}

type GormCommentRepository struct{ db *gorm.DB }

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(comment *domain.Comment) error {
	if err := r.db.Create(comment).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "comment", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "comment", "create", "success")
	return nil
}

func (r *GormCommentRepository) FindByID(id uint) (*domain.Comment, error) {
	var comment domain.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "comment", "find_by_id", "not_found")
			return nil, ErrCommentNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "comment", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "comment", "find_by_id", "success")
	return &comment, nil
}

func (r *GormCommentRepository) ListByPost(postID uint, status domain.CommentStatus) ([]domain.Comment, error) {
	var comments []domain.Comment
	query := r.db.Where("post_id = ?", postID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at asc").Find(&comments).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "comment", "list_by_post", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "comment", "list_by_post", "success")
	return comments, nil
}

func (r *GormCommentRepository) ListByStatus(status domain.CommentStatus) ([]domain.Comment, error) {
	var comments []domain.Comment
	query := r.db.Order("created_at asc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&comments).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "comment", "list_by_status", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "comment", "list_by_status", "success")
	return comments, nil
}

func (r *GormCommentRepository) UpdateStatus(id uint, status domain.CommentStatus) error {
	res := r.db.Model(&domain.Comment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "comment", "update_status", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "comment", "update_status", "not_found")
		return ErrCommentNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "comment", "update_status", "success")
	return nil
}

func (r *GormCommentRepository) Delete(id uint) error {
	res := r.db.Delete(&domain.Comment{}, id)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "comment", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "comment", "delete", "not_found")
		return ErrCommentNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "comment", "delete", "success")
	return nil
}
