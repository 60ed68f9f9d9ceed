package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
)

func TestPostRepositoryCreateAndSlugLookup(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewPostRepository(db)
	author := createTestUser(t, db, "author")

	post := &domain.Post{
		Slug:     "  The-Basement-Door ",
		Title:    "The Basement Door",
		Content:  "body",
		AuthorID: author.ID,
	}
	if err := repo.Create(post); err != nil {
		t.Fatalf("create: %v", err)
	}
	if post.Slug != "the-basement-door" {
		t.Fatalf("expected normalized slug, got %q", post.Slug)
	}

	got, err := repo.FindBySlug("THE-BASEMENT-DOOR")
	if err != nil {
		t.Fatalf("find by slug: %v", err)
	}
	if got.ID != post.ID {
		t.Fatalf("expected post %d, got %d", post.ID, got.ID)
	}
}

func TestPostRepositoryListPaginationAndFilter(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewPostRepository(db)
	author := createTestUser(t, db, "author")

	for i := 0; i < 25; i++ {
		post := &domain.Post{
			Slug:          fmt.Sprintf("story-%02d", i),
			Title:         fmt.Sprintf("Story %02d", i),
			Content:       "body",
			AuthorID:      author.ID,
			ThemeCategory: "psychological",
			Published:     i%5 != 0,
		}
		if err := repo.Create(post); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, err := repo.List(PageRequest{Page: 1, PageSize: 10}, PostFilter{PublishedOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 20 {
		t.Fatalf("expected 20 published posts, got %d", page.Total)
	}
	if len(page.Items) != 10 || page.TotalPages != 2 {
		t.Fatalf("unexpected page shape: items=%d pages=%d", len(page.Items), page.TotalPages)
	}

	page, err = repo.List(PageRequest{Page: 0, PageSize: 1000}, PostFilter{ThemeCategory: "Psychological"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if page.Page != DefaultPage || page.PageSize != MaxPageSize {
		t.Fatalf("expected normalized page request, got page=%d size=%d", page.Page, page.PageSize)
	}
	if page.Total != 25 {
		t.Fatalf("expected all 25 posts in theme, got %d", page.Total)
	}
}

func TestPostRepositoryUpdateAndDelete(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewPostRepository(db)
	author := createTestUser(t, db, "author")
	post := createTestPost(t, db, author.ID, "story")

	post.Title = "Renamed"
	post.Published = false
	if err := repo.Update(post); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.FindByID(post.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Title != "Renamed" || got.Published {
		t.Fatalf("unexpected post after update: %+v", got)
	}

	if err := repo.SetCoverImageKey(post.ID, "covers/story.jpg"); err != nil {
		t.Fatalf("set cover: %v", err)
	}
	got, _ = repo.FindByID(post.ID)
	if got.CoverImageKey != "covers/story.jpg" {
		t.Fatalf("unexpected cover key %q", got.CoverImageKey)
	}

	if err := repo.Delete(post.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(post.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
	if err := repo.Delete(post.ID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound on repeat delete, got %v", err)
	}
}
