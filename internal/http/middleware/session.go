package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/response"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/security"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

type ctxKey int

const sessionCtxKey ctxKey = iota

// SessionFromContext returns the live session attached by the loader, or
// nil when the request carries none.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionCtxKey).(*domain.Session)
	return s
}

// CurrentUserID returns the authenticated user for the request; ok is
// false for anonymous sessions and sessionless requests.
func CurrentUserID(ctx context.Context) (uint, bool) {
	s := SessionFromContext(ctx)
	if s == nil || s.UserID == nil {
		return 0, false
	}
	return *s.UserID, true
}

// SessionLoader resolves the caller's session from the cookie or a bearer
// session token and attaches it to the request context. Safe requests that
// arrive without a live session get a fresh anonymous one (and the cookie
// that goes with it); mutating requests do not, so the guard can 401 them.
type SessionLoader struct {
	sessions service.SessionServiceInterface
	tokens   *security.SessionTokenManager
	cookies  *security.CookieManager
}

func NewSessionLoader(sessions service.SessionServiceInterface, tokens *security.SessionTokenManager, cookies *security.CookieManager) *SessionLoader {
	return &SessionLoader{sessions: sessions, tokens: tokens, cookies: cookies}
}

func (l *SessionLoader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := l.resolveSessionID(r)

			if sessionID != "" {
				session, err := l.sessions.Get(sessionID)
				if err == nil {
					// sliding expiry; a failed touch is not fatal for the request
					if terr := l.sessions.Touch(sessionID); terr != nil {
						slog.Warn("session touch failed", "session_id", sessionID, "error", terr.Error())
					}
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey, session)))
					return
				}
				if !errors.Is(err, repository.ErrSessionNotFound) {
					slog.Error("session lookup failed", "error", err.Error())
					response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "session lookup failed", nil)
					return
				}
			}

			if !isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			session, err := l.createAnonymousSession(r)
			if err != nil {
				slog.Error("anonymous session creation failed", "error", err.Error())
				response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "session creation failed", nil)
				return
			}
			l.cookies.SetSessionCookie(w, session.SessionID, l.sessions.TTL())
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey, session)))
		})
	}
}

func (l *SessionLoader) resolveSessionID(r *http.Request) string {
	if sid := security.GetCookie(r, l.cookies.Name); sid != "" {
		return sid
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > len("bearer ") && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		raw := strings.TrimSpace(auth[len("bearer "):])
		claims, err := l.tokens.Parse(raw)
		if err != nil {
			return ""
		}
		return claims.Subject
	}
	return ""
}

func (l *SessionLoader) createAnonymousSession(r *http.Request) (*domain.Session, error) {
	return l.sessions.Set(l.sessions.NewSessionID(), service.SessionData{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil || host == "" {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
