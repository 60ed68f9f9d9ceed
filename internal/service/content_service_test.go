package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"The Basement Door":        "the-basement-door",
		"  Whispers... at 3 AM!  ": "whispers-at-3-am",
		"---":                      "",
		"Already-Sluggy":           "already-sluggy",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q)=%q want %q", in, got, want)
		}
	}
}

func TestEstimateReadingTime(t *testing.T) {
	short := "one two three"
	if got := estimateReadingTime(short); got != 1 {
		t.Fatalf("expected 1 minute for short content, got %d", got)
	}
	long := strings.Repeat("word ", 450)
	if got := estimateReadingTime(long); got != 3 {
		t.Fatalf("expected 3 minutes for 450 words, got %d", got)
	}
}

func TestBuildExcerptTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("word ", 100)
	excerpt := buildExcerpt(long)
	if len(strings.Fields(excerpt)) != 40 {
		t.Fatalf("expected 40-word excerpt, got %d words", len(strings.Fields(excerpt)))
	}
	if !strings.HasSuffix(excerpt, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", excerpt)
	}

	short := "a short story"
	if got := buildExcerpt(short); got != short {
		t.Fatalf("short content must pass through, got %q", got)
	}
}

type countingPostRepository struct {
	post        *domain.Post
	slugReads   int
	updateCalls int
}

func (r *countingPostRepository) Create(post *domain.Post) error { return errors.New("unused") }

func (r *countingPostRepository) FindByID(id uint) (*domain.Post, error) {
	copied := *r.post
	return &copied, nil
}

func (r *countingPostRepository) FindBySlug(slug string) (*domain.Post, error) {
	r.slugReads++
	if slug != r.post.Slug {
		return nil, repository.ErrPostNotFound
	}
	copied := *r.post
	return &copied, nil
}

func (r *countingPostRepository) List(page repository.PageRequest, filter repository.PostFilter) (repository.PageResult[domain.Post], error) {
	return repository.PageResult[domain.Post]{}, nil
}

func (r *countingPostRepository) Update(post *domain.Post) error {
	r.updateCalls++
	r.post = post
	return nil
}

func (r *countingPostRepository) SetCoverImageKey(id uint, key string) error { return nil }
func (r *countingPostRepository) Delete(id uint) error                       { return nil }

func TestGetPostBySlugReadsThroughCache(t *testing.T) {
	repo := &countingPostRepository{post: &domain.Post{
		Slug:     "the-basement-door",
		Title:    "The Basement Door",
		Content:  "It was never locked.",
		AuthorID: 1,
	}}
	svc := NewContentService(repo, nil, nil, nil, NewInMemoryContentCacheStore(), time.Minute)

	first, err := svc.GetPostBySlug("the-basement-door")
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := svc.GetPostBySlug("the-basement-door")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if repo.slugReads != 1 {
		t.Fatalf("second read should come from cache, repo reads=%d", repo.slugReads)
	}
	if first.Title != second.Title || second.Title != "The Basement Door" {
		t.Fatalf("cached copy drifted: %q vs %q", first.Title, second.Title)
	}
}

func TestUpdatePostInvalidatesCachedCopy(t *testing.T) {
	repo := &countingPostRepository{post: &domain.Post{
		ID:       4,
		Slug:     "the-basement-door",
		Title:    "The Basement Door",
		Content:  "It was never locked.",
		AuthorID: 1,
	}}
	svc := NewContentService(repo, nil, nil, nil, NewInMemoryContentCacheStore(), time.Minute)

	if _, err := svc.GetPostBySlug("the-basement-door"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	if _, err := svc.UpdatePost(1, false, 4, PostInput{
		Title:   "The Basement Door",
		Content: "It was always open.",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.GetPostBySlug("the-basement-door")
	if err != nil {
		t.Fatalf("read after update: %v", err)
	}
	if repo.slugReads != 2 {
		t.Fatalf("update must evict the cached copy, repo reads=%d", repo.slugReads)
	}
	if got.Content != "It was always open." {
		t.Fatalf("stale content served: %q", got.Content)
	}
}

func TestGetPostBySlugSurvivesCacheFailure(t *testing.T) {
	repo := &countingPostRepository{post: &domain.Post{
		Slug:    "the-basement-door",
		Title:   "The Basement Door",
		Content: "It was never locked.",
	}}
	svc := NewContentService(repo, nil, nil, nil, failingContentCacheStore{}, time.Minute)

	got, err := svc.GetPostBySlug("the-basement-door")
	if err != nil {
		t.Fatalf("read with broken cache: %v", err)
	}
	if got.Title != "The Basement Door" {
		t.Fatalf("unexpected post: %q", got.Title)
	}
}

type failingContentCacheStore struct{}

func (failingContentCacheStore) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingContentCacheStore) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return errors.New("cache down")
}

func (failingContentCacheStore) Invalidate(_ context.Context, _ ...string) error {
	return errors.New("cache down")
}

func TestModerateCommentRejectsUnknownStatus(t *testing.T) {
	svc := NewContentService(nil, nil, nil, nil, nil, 0)
	if err := svc.ModerateComment(1, domain.CommentStatus("vaporized")); !errors.Is(err, ErrInvalidCommentInput) {
		t.Fatalf("expected ErrInvalidCommentInput, got %v", err)
	}
}
