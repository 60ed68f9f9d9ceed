package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/middleware"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/response"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

// ReactionHandler covers bookmarks and likes, the two per-user post
// reactions. All routes here sit behind RequireUser.
type ReactionHandler struct {
	content service.ContentServiceInterface
}

func NewReactionHandler(content service.ContentServiceInterface) *ReactionHandler {
	return &ReactionHandler{content: content}
}

type bookmarkRequest struct {
	Note string `json:"note"`
}

func (h *ReactionHandler) SaveBookmark(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.CurrentUserID(r.Context())
	postID, ok := uintParam(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return
	}
	var req bookmarkRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
			return
		}
	}
	if err := h.content.SaveBookmark(userID, postID, req.Note); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to save bookmark", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "bookmarked"})
}

func (h *ReactionHandler) RemoveBookmark(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.CurrentUserID(r.Context())
	postID, ok := uintParam(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return
	}
	if err := h.content.RemoveBookmark(userID, postID); err != nil {
		if errors.Is(err, repository.ErrBookmarkNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "bookmark not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to remove bookmark", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *ReactionHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.CurrentUserID(r.Context())
	bookmarks, err := h.content.ListBookmarks(userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list bookmarks", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": bookmarks})
}

func (h *ReactionHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.CurrentUserID(r.Context())
	postID, ok := uintParam(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return
	}
	count, err := h.content.LikePost(userID, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to like post", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"liked": true, "likes": count})
}

func (h *ReactionHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.CurrentUserID(r.Context())
	postID, ok := uintParam(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return
	}
	count, err := h.content.UnlikePost(userID, postID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to unlike post", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"liked": false, "likes": count})
}
