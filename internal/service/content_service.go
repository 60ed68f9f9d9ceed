package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
)

var (
	ErrInvalidPostInput    = errors.New("invalid post input")
	ErrInvalidCommentInput = errors.New("invalid comment input")
	ErrNotPostOwner        = errors.New("not the post author")
)

const wordsPerMinute = 200

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

type PostInput struct {
	Title         string
	Content       string
	Excerpt       string
	ThemeCategory string
	Published     bool
}

type CommentInput struct {
	AuthorName string
	Content    string
	UserID     *uint
}

type ContentServiceInterface interface {
	CreatePost(authorID uint, in PostInput) (*domain.Post, error)
	GetPostBySlug(slug string) (*domain.Post, error)
	ListPosts(page repository.PageRequest, filter repository.PostFilter) (repository.PageResult[domain.Post], error)
	UpdatePost(actorID uint, isAdmin bool, postID uint, in PostInput) (*domain.Post, error)
	DeletePost(actorID uint, isAdmin bool, postID uint) error
	SetPostCover(actorID uint, isAdmin bool, postID uint, key string) (string, error)
	AddComment(postID uint, in CommentInput) (*domain.Comment, error)
	ListComments(postID uint, includeUnmoderated bool) ([]domain.Comment, error)
	ListCommentsForModeration(status domain.CommentStatus) ([]domain.Comment, error)
	ModerateComment(commentID uint, status domain.CommentStatus) error
	DeleteComment(actorID uint, isAdmin bool, commentID uint) error
	SaveBookmark(userID, postID uint, note string) error
	RemoveBookmark(userID, postID uint) error
	ListBookmarks(userID uint) ([]domain.Bookmark, error)
	LikePost(userID, postID uint) (int64, error)
	UnlikePost(userID, postID uint) (int64, error)
}

type ContentService struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	bookmarks repository.BookmarkRepository
	likes     repository.LikeRepository
	cache     ContentCacheStore
	cacheTTL  time.Duration
}

func NewContentService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	bookmarks repository.BookmarkRepository,
	likes repository.LikeRepository,
	cache ContentCacheStore,
	cacheTTL time.Duration,
) *ContentService {
	if cache == nil {
		cache = NewNoopContentCacheStore()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ContentService{
		posts:     posts,
		comments:  comments,
		bookmarks: bookmarks,
		likes:     likes,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

func postCacheKey(slug string) string { return "post:" + slug }

func (s *ContentService) CreatePost(authorID uint, in PostInput) (*domain.Post, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrInvalidPostInput)
	}

	post := &domain.Post{
		Slug:          Slugify(title),
		Title:         title,
		Content:       in.Content,
		Excerpt:       strings.TrimSpace(in.Excerpt),
		AuthorID:      authorID,
		ThemeCategory: strings.TrimSpace(strings.ToLower(in.ThemeCategory)),
		ReadingTime:   estimateReadingTime(in.Content),
		Published:     in.Published,
	}
	if post.Excerpt == "" {
		post.Excerpt = buildExcerpt(in.Content)
	}
	if err := s.posts.Create(post); err != nil {
		observability.RecordContentEvent(context.Background(), "post", "create", "error")
		return nil, err
	}
	observability.RecordContentEvent(context.Background(), "post", "create", "success")
	return post, nil
}

// GetPostBySlug reads through the content cache; cache failures degrade
// to a direct repository read.
func (s *ContentService) GetPostBySlug(slug string) (*domain.Post, error) {
	ctx := context.Background()
	key := postCacheKey(slug)
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.Warn("content cache read failed", "key", key, "error", err.Error())
	} else if ok {
		var post domain.Post
		if json.Unmarshal(raw, &post) == nil {
			return &post, nil
		}
	}

	post, err := s.posts.FindBySlug(slug)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(post); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			slog.Warn("content cache write failed", "key", key, "error", err.Error())
		}
	}
	return post, nil
}

func (s *ContentService) ListPosts(page repository.PageRequest, filter repository.PostFilter) (repository.PageResult[domain.Post], error) {
	return s.posts.List(page, filter)
}

func (s *ContentService) UpdatePost(actorID uint, isAdmin bool, postID uint, in PostInput) (*domain.Post, error) {
	post, err := s.posts.FindByID(postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID && !isAdmin {
		return nil, ErrNotPostOwner
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrInvalidPostInput)
	}

	post.Title = title
	post.Content = in.Content
	post.Excerpt = strings.TrimSpace(in.Excerpt)
	post.ThemeCategory = in.ThemeCategory
	post.ReadingTime = estimateReadingTime(in.Content)
	post.Published = in.Published
	if err := s.posts.Update(post); err != nil {
		observability.RecordContentEvent(context.Background(), "post", "update", "error")
		return nil, err
	}
	s.invalidatePost(post.Slug)
	observability.RecordContentEvent(context.Background(), "post", "update", "success")
	return s.posts.FindByID(postID)
}

func (s *ContentService) invalidatePost(slug string) {
	if err := s.cache.Invalidate(context.Background(), postCacheKey(slug)); err != nil {
		slog.Warn("content cache invalidation failed", "slug", slug, "error", err.Error())
	}
}

func (s *ContentService) DeletePost(actorID uint, isAdmin bool, postID uint) error {
	post, err := s.posts.FindByID(postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID && !isAdmin {
		return ErrNotPostOwner
	}
	if err := s.posts.Delete(postID); err != nil {
		observability.RecordContentEvent(context.Background(), "post", "delete", "error")
		return err
	}
	s.invalidatePost(post.Slug)
	observability.RecordContentEvent(context.Background(), "post", "delete", "success")
	return nil
}

// SetPostCover records the storage key of an uploaded cover image and
// returns the previous key so the caller can clean it up.
func (s *ContentService) SetPostCover(actorID uint, isAdmin bool, postID uint, key string) (string, error) {
	post, err := s.posts.FindByID(postID)
	if err != nil {
		return "", err
	}
	if post.AuthorID != actorID && !isAdmin {
		return "", ErrNotPostOwner
	}
	previous := post.CoverImageKey
	if err := s.posts.SetCoverImageKey(postID, key); err != nil {
		observability.RecordContentEvent(context.Background(), "post", "set_cover", "error")
		return "", err
	}
	s.invalidatePost(post.Slug)
	observability.RecordContentEvent(context.Background(), "post", "set_cover", "success")
	return previous, nil
}

// AddComment accepts anonymous comments; an authenticated user id overrides
// whatever display name was supplied. New comments always land pending.
func (s *ContentService) AddComment(postID uint, in CommentInput) (*domain.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidCommentInput)
	}
	if _, err := s.posts.FindByID(postID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.AuthorName)
	if name == "" && in.UserID == nil {
		name = "Anonymous Reader"
	}
	comment := &domain.Comment{
		PostID:     postID,
		UserID:     in.UserID,
		AuthorName: name,
		Content:    content,
		Status:     domain.CommentStatusPending,
	}
	if err := s.comments.Create(comment); err != nil {
		observability.RecordContentEvent(context.Background(), "comment", "create", "error")
		return nil, err
	}
	observability.RecordContentEvent(context.Background(), "comment", "create", "success")
	return comment, nil
}

func (s *ContentService) ListComments(postID uint, includeUnmoderated bool) ([]domain.Comment, error) {
	if includeUnmoderated {
		return s.comments.ListByPost(postID, "")
	}
	return s.comments.ListByPost(postID, domain.CommentStatusApproved)
}

func (s *ContentService) ListCommentsForModeration(status domain.CommentStatus) ([]domain.Comment, error) {
	return s.comments.ListByStatus(status)
}

func (s *ContentService) ModerateComment(commentID uint, status domain.CommentStatus) error {
	switch status {
	case domain.CommentStatusApproved, domain.CommentStatusFlagged, domain.CommentStatusPending:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidCommentInput, status)
	}
	if err := s.comments.UpdateStatus(commentID, status); err != nil {
		observability.RecordContentEvent(context.Background(), "comment", "moderate", "error")
		return err
	}
	observability.RecordContentEvent(context.Background(), "comment", "moderate", "success")
	return nil
}

func (s *ContentService) DeleteComment(actorID uint, isAdmin bool, commentID uint) error {
	comment, err := s.comments.FindByID(commentID)
	if err != nil {
		return err
	}
	owns := comment.UserID != nil && *comment.UserID == actorID
	if !owns && !isAdmin {
		return ErrNotPostOwner
	}
	return s.comments.Delete(commentID)
}

func (s *ContentService) SaveBookmark(userID, postID uint, note string) error {
	if _, err := s.posts.FindByID(postID); err != nil {
		return err
	}
	return s.bookmarks.Save(&domain.Bookmark{UserID: userID, PostID: postID, Note: strings.TrimSpace(note)})
}

func (s *ContentService) RemoveBookmark(userID, postID uint) error {
	return s.bookmarks.Remove(userID, postID)
}

func (s *ContentService) ListBookmarks(userID uint) ([]domain.Bookmark, error) {
	return s.bookmarks.ListByUser(userID)
}

func (s *ContentService) LikePost(userID, postID uint) (int64, error) {
	if _, err := s.posts.FindByID(postID); err != nil {
		return 0, err
	}
	if err := s.likes.Add(userID, postID); err != nil {
		return 0, err
	}
	return s.likes.CountByPost(postID)
}

func (s *ContentService) UnlikePost(userID, postID uint) (int64, error) {
	if err := s.likes.Remove(userID, postID); err != nil {
		return 0, err
	}
	return s.likes.CountByPost(postID)
}

// Slugify lowercases, strips non-alphanumerics and collapses runs into
// single hyphens: "The Basement Door!" -> "the-basement-door".
func Slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

func estimateReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := words / wordsPerMinute
	if words%wordsPerMinute != 0 || minutes == 0 {
		minutes++
	}
	return minutes
}

func buildExcerpt(content string) string {
	fields := strings.Fields(content)
	if len(fields) > 40 {
		fields = fields[:40]
		return strings.Join(fields, " ") + "..."
	}
	return strings.Join(fields, " ")
}
