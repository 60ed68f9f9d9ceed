package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/middleware"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/response"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

const maxCoverUploadBytes = 8*1024*1024 + 4096

type PostHandler struct {
	content service.ContentServiceInterface
	auth    service.AuthServiceInterface
	storage service.StorageService
}

func NewPostHandler(content service.ContentServiceInterface, auth service.AuthServiceInterface, storage service.StorageService) *PostHandler {
	return &PostHandler{content: content, auth: auth, storage: storage}
}

type postRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Excerpt       string `json:"excerpt"`
	ThemeCategory string `json:"theme_category"`
	Published     bool   `json:"published"`
}

func (req postRequest) toInput() service.PostInput {
	return service.PostInput{
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		ThemeCategory: req.ThemeCategory,
		Published:     req.Published,
	}
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUserID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	post, err := h.content.CreatePost(userID, req.toInput())
	if err != nil {
		if errors.Is(err, service.ErrInvalidPostInput) {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create post", nil)
		return
	}
	response.JSON(w, r, http.StatusCreated, post)
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.PostFilter{
		ThemeCategory: strings.TrimSpace(q.Get("theme")),
		PublishedOnly: true,
	}
	if raw := q.Get("author_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			filter.AuthorID = uint(id)
		}
	}
	result, err := h.content.ListPosts(pageRequest(r), filter)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list posts", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, pageMeta(result))
}

func (h *PostHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	post, err := h.content.GetPostBySlug(slug)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load post", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, post)
}

func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUserID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	postID, ok := uintParam(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return
	}
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	post, err := h.content.UpdatePost(userID, h.isAdmin(r), postID, req.toInput())
	if err != nil {
		h.writeContentError(w, r, err, "failed to update post")
		return
	}
	response.JSON(w, r, http.StatusOK, post)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUserID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	postID, ok := uintParam(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return
	}
	if err := h.content.DeletePost(userID, h.isAdmin(r), postID); err != nil {
		h.writeContentError(w, r, err, "failed to delete post")
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// UploadCover accepts a multipart "cover" file, stores it, and swaps the
// post's cover key. The old object is deleted best-effort after the swap.
func (h *PostHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUserID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	postID, ok := uintParam(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverUploadBytes)
	file, header, err := r.FormFile("cover")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "cover file is required", nil)
		return
	}
	defer file.Close()

	key, err := h.storage.UploadCover(r.Context(), postID, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooBig), errors.Is(err, service.ErrInvalidFileType):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "cover upload failed", nil)
		}
		return
	}

	previous, err := h.content.SetPostCover(userID, h.isAdmin(r), postID, key)
	if err != nil {
		if derr := h.storage.DeleteCover(r.Context(), postID, key); derr != nil {
			slog.Warn("orphaned cover cleanup failed", "key", key, "error", derr.Error())
		}
		h.writeContentError(w, r, err, "failed to attach cover")
		return
	}
	if previous != "" && previous != key {
		if derr := h.storage.DeleteCover(r.Context(), postID, previous); derr != nil {
			slog.Warn("stale cover cleanup failed", "key", previous, "error", derr.Error())
		}
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"cover_image_key": key})
}

// CoverURL returns a short-lived presigned URL for the post's cover.
func (h *PostHandler) CoverURL(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	post, err := h.content.GetPostBySlug(slug)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load post", nil)
		return
	}
	if post.CoverImageKey == "" {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "post has no cover image", nil)
		return
	}
	url, err := h.storage.CoverURL(r.Context(), post.CoverImageKey)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to generate cover URL", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"url": url})
}

func (h *PostHandler) isAdmin(r *http.Request) bool {
	userID, ok := middleware.CurrentUserID(r.Context())
	if !ok {
		return false
	}
	user, err := h.auth.GetUser(userID)
	if err != nil {
		return false
	}
	return user.IsAdmin
}

func (h *PostHandler) writeContentError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrPostNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
	case errors.Is(err, service.ErrNotPostOwner):
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "not the post author", nil)
	case errors.Is(err, service.ErrInvalidPostInput):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}
