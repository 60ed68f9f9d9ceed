package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/response"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

// AdminHandler is the operator surface: session audit and comment
// moderation. Every route sits behind RequireAdmin.
type AdminHandler struct {
	sessions service.SessionServiceInterface
	content  service.ContentServiceInterface
}

func NewAdminHandler(sessions service.SessionServiceInterface, content service.ContentServiceInterface) *AdminHandler {
	return &AdminHandler{sessions: sessions, content: content}
}

func (h *AdminHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.All()
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list sessions", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": sessions})
}

func (h *AdminHandler) CountSessions(w http.ResponseWriter, r *http.Request) {
	count, err := h.sessions.Length()
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to count sessions", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]int64{"active": count})
}

// InvalidateUserSessions force-revokes every session of one user, the
// lever for compromised accounts and password resets.
func (h *AdminHandler) InvalidateUserSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := uintParam(r, "userID")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	revoked, err := h.sessions.InvalidateUserSessions(userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to invalidate sessions", nil)
		return
	}
	observability.RecordSessionEvent(r.Context(), "invalidate_user", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": revoked})
}

func (h *AdminHandler) CleanupExpiredSessions(w http.ResponseWriter, r *http.Request) {
	expired, err := h.sessions.CleanupExpired()
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "session cleanup failed", nil)
		return
	}
	observability.RecordSessionEvent(r.Context(), "cleanup", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"expired": expired})
}

// ClearSessions revokes every active session, logging everyone out.
func (h *AdminHandler) ClearSessions(w http.ResponseWriter, r *http.Request) {
	revoked, err := h.sessions.Clear()
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to clear sessions", nil)
		return
	}
	observability.RecordSessionEvent(r.Context(), "clear", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": revoked})
}

func (h *AdminHandler) ListCommentsForModeration(w http.ResponseWriter, r *http.Request) {
	status := domain.CommentStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status == "" {
		status = domain.CommentStatusPending
	}
	comments, err := h.content.ListCommentsForModeration(status)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list comments", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": comments})
}

type moderateRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) ModerateComment(w http.ResponseWriter, r *http.Request) {
	commentID, ok := uintParam(r, "commentID")
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid comment id", nil)
		return
	}
	var req moderateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	err := h.content.ModerateComment(commentID, domain.CommentStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCommentNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "comment not found", nil)
		case errors.Is(err, service.ErrInvalidCommentInput):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "moderation failed", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "updated"})
}
