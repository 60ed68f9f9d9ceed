package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
)

var ErrPostNotFound = errors.New("post not found")

type PostFilter struct {
	ThemeCategory string
	AuthorID      uint
	PublishedOnly bool
}

type PostRepository interface {
	Create(post *domain.Post) error
	FindByID(id uint) (*domain.Post, error)
	FindBySlug(slug string) (*domain.Post, error)
	List(page PageRequest, filter PostFilter) (PageResult[domain.Post], error)
	Update(post *domain.Post) error
	SetCoverImageKey(id uint, key string) error
	Delete(id uint) error
}

type GormPostRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository {
	return &GormPostRepository{db: db}
}

func (r *GormPostRepository) Create(post *domain.Post) error {
	post.Slug = strings.TrimSpace(strings.ToLower(post.Slug))
	if err := r.db.Create(post).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "post", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "post", "create", "success")
	return nil
}

func (r *GormPostRepository) FindByID(id uint) (*domain.Post, error) {
	var post domain.Post
	if err := r.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "post", "find_by_id", "not_found")
			return nil, ErrPostNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "post", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "post", "find_by_id", "success")
	return &post, nil
}

func (r *GormPostRepository) FindBySlug(slug string) (*domain.Post, error) {
	var post domain.Post
	err := r.db.Where("slug = ?", strings.TrimSpace(strings.ToLower(slug))).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "post", "find_by_slug", "not_found")
			return nil, ErrPostNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "post", "find_by_slug", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "post", "find_by_slug", "success")
	return &post, nil
}

func (r *GormPostRepository) List(page PageRequest, filter PostFilter) (PageResult[domain.Post], error) {
	page = page.normalized()
	query := r.db.Model(&domain.Post{})
	if filter.PublishedOnly {
		query = query.Where("published = ?", true)
	}
	if filter.ThemeCategory != "" {
		query = query.Where("theme_category = ?", strings.TrimSpace(strings.ToLower(filter.ThemeCategory)))
	}
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "post", "list", "error")
		return PageResult[domain.Post]{}, err
	}

	var posts []domain.Post
	err := query.Order("created_at desc").
		Offset(page.offset()).
		Limit(page.PageSize).
		Find(&posts).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "post", "list", "error")
		return PageResult[domain.Post]{}, err
	}
	observability.RecordRepositoryOperation(context.Background(), "post", "list", "success")
	return newPageResult(posts, page, total), nil
}

func (r *GormPostRepository) Update(post *domain.Post) error {
	res := r.db.Model(&domain.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
		"title":          strings.TrimSpace(post.Title),
		"content":        post.Content,
		"excerpt":        strings.TrimSpace(post.Excerpt),
		"theme_category": strings.TrimSpace(strings.ToLower(post.ThemeCategory)),
		"reading_time":   post.ReadingTime,
		"published":      post.Published,
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "post", "update", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "post", "update", "not_found")
		return ErrPostNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "post", "update", "success")
	return nil
}

func (r *GormPostRepository) SetCoverImageKey(id uint, key string) error {
	res := r.db.Model(&domain.Post{}).Where("id = ?", id).Update("cover_image_key", key)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "post", "set_cover", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "post", "set_cover", "not_found")
		return ErrPostNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "post", "set_cover", "success")
	return nil
}

func (r *GormPostRepository) Delete(id uint) error {
	res := r.db.Delete(&domain.Post{}, id)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "post", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "post", "delete", "not_found")
		return ErrPostNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "post", "delete", "success")
	return nil
}
