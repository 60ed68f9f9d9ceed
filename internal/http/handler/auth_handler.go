package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/middleware"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/response"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/security"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

type AuthHandler struct {
	auth     service.AuthServiceInterface
	sessions service.SessionServiceInterface
	cookies  *security.CookieManager
}

func NewAuthHandler(auth service.AuthServiceInterface, sessions service.SessionServiceInterface, cookies *security.CookieManager) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, cookies: cookies}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CSRFToken hands out the double-submit token for the caller's session.
// The loader has already attached (or created) the session, so this is
// a read-through with lazy token generation for older rows.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "no session for request", nil)
		return
	}
	token, err := h.sessions.EnsureCSRFToken(session.SessionID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to issue token", nil)
		return
	}
	observability.RecordCSRFEvent(r.Context(), "issued")
	response.JSON(w, r, http.StatusOK, map[string]string{"csrfToken": token})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	user, err := h.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRegistration):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		case errors.Is(err, repository.ErrUserDuplicate):
			response.Error(w, r, http.StatusConflict, "CONFLICT", "username or email already taken", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "registration failed", nil)
		}
		return
	}

	session, err := h.bindUserSession(w, r, user.ID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "session creation failed", nil)
		return
	}
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"user":  user,
		"token": session.Token,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	user, err := h.auth.Login(strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid email or password", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		return
	}

	session, err := h.bindUserSession(w, r, user.ID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "session creation failed", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":  user,
		"token": session.Token,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "a valid session is required", nil)
		return
	}
	if err := h.sessions.Destroy(session.SessionID); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
		return
	}
	h.cookies.ClearSessionCookie(w)
	observability.RecordSessionEvent(r.Context(), "destroy", "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged out"})
}

// LogoutAll revokes every session belonging to the caller, including the
// current one.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUserID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	revoked, err := h.sessions.InvalidateUserSessions(userID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
		return
	}
	h.cookies.ClearSessionCookie(w)
	observability.RecordSessionEvent(r.Context(), "invalidate_user", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": revoked})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUserID(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	user, err := h.auth.GetUser(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "user no longer exists", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load user", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

// bindUserSession replaces the caller's session with a fresh one tied to
// the user. A new session id on privilege change keeps a pre-login cookie
// from being promoted to an authenticated one.
func (h *AuthHandler) bindUserSession(w http.ResponseWriter, r *http.Request, userID uint) (*domain.Session, error) {
	if old := middleware.SessionFromContext(r.Context()); old != nil {
		if err := h.sessions.Destroy(old.SessionID); err != nil {
			return nil, err
		}
	}
	session, err := h.sessions.Set(h.sessions.NewSessionID(), service.SessionData{
		UserID:    &userID,
		IPAddress: clientAddr(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		return nil, err
	}
	h.cookies.SetSessionCookie(w, session.SessionID, h.sessions.TTL())
	observability.RecordSessionEvent(r.Context(), "create", "success")
	return session, nil
}
