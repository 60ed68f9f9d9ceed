package middleware

import (
	"net/http"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/response"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/security"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

const CSRFHeader = "X-CSRF-Token"

// RequestGuard gates mutating requests: a live session is required (401)
// and the CSRF header must match the session's stored token (403, with a
// code the client recognizes as retry-with-fresh-token). Safe methods pass
// through untouched and the downstream handler never runs on a failure.
func RequestGuard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			session := SessionFromContext(r.Context())
			if session == nil {
				observability.RecordCSRFEvent(r.Context(), "no_session")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "a valid session is required", nil)
				return
			}

			header := r.Header.Get(CSRFHeader)
			if !security.TokensEqual(session.CSRFToken, header) {
				observability.RecordCSRFEvent(r.Context(), "mismatch")
				response.Error(w, r, http.StatusForbidden, response.CodeCSRFInvalid, "missing or invalid CSRF token", nil)
				return
			}

			observability.RecordCSRFEvent(r.Context(), "success")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects anonymous sessions; RequireAdmin additionally checks
// the admin flag resolved from the user record.
func RequireUser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CurrentUserID(r.Context()); !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(auth service.AuthServiceInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := CurrentUserID(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			user, err := auth.GetUser(userID)
			if err != nil || !user.IsAdmin {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "admin access required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
