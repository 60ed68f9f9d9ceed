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

type CommentHandler struct {
	content service.ContentServiceInterface
	auth    service.AuthServiceInterface
}

func NewCommentHandler(content service.ContentServiceInterface, auth service.AuthServiceInterface) *CommentHandler {
	return &CommentHandler{content: content, auth: auth}
}

type commentRequest struct {
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
}

// Create accepts comments from anonymous sessions too; the session must
// exist (and carry a valid CSRF token), but a login is not required.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	postID, ok := uintParam(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return
	}
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	in := service.CommentInput{AuthorName: req.AuthorName, Content: req.Content}
	if userID, ok := middleware.CurrentUserID(r.Context()); ok {
		in.UserID = &userID
	}
	comment, err := h.content.AddComment(postID, in)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPostNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
		case errors.Is(err, service.ErrInvalidCommentInput):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to add comment", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusCreated, comment)
}

// List shows approved comments to everyone; admins see the full thread
// including pending and flagged entries.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID, ok := uintParam(r, "id")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid post id", nil)
		return
	}
	comments, err := h.content.ListComments(postID, h.callerIsAdmin(r))
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list comments", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": comments})
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUserID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	commentID, ok := uintParam(r, "commentID")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid comment id", nil)
		return
	}
	if err := h.content.DeleteComment(userID, h.callerIsAdmin(r), commentID); err != nil {
		switch {
		case errors.Is(err, repository.ErrCommentNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "comment not found", nil)
		case errors.Is(err, service.ErrNotPostOwner):
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "cannot delete this comment", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to delete comment", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *CommentHandler) callerIsAdmin(r *http.Request) bool {
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
