package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/domain"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/security"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

type stubSessionService struct {
	getFn    func(sessionID string) (*domain.Session, error)
	setFn    func(sessionID string, data service.SessionData) (*domain.Session, error)
	touchFn  func(sessionID string) error
	touched  []string
	ttlValue time.Duration
}

func (s *stubSessionService) Get(sessionID string) (*domain.Session, error) {
	if s.getFn != nil {
		return s.getFn(sessionID)
	}
	return nil, repository.ErrSessionNotFound
}

func (s *stubSessionService) Set(sessionID string, data service.SessionData) (*domain.Session, error) {
	if s.setFn != nil {
		return s.setFn(sessionID, data)
	}
	return &domain.Session{SessionID: sessionID, Status: domain.SessionStatusActive}, nil
}

func (s *stubSessionService) Touch(sessionID string) error {
	s.touched = append(s.touched, sessionID)
	if s.touchFn != nil {
		return s.touchFn(sessionID)
	}
	return nil
}

func (s *stubSessionService) Destroy(string) error           { return nil }
func (s *stubSessionService) All() ([]domain.Session, error) { return nil, nil }
func (s *stubSessionService) Length() (int64, error)         { return 0, nil }
func (s *stubSessionService) Clear() (int64, error)          { return 0, nil }
func (s *stubSessionService) InvalidateUserSessions(uint) (int64, error) {
	return 0, nil
}
func (s *stubSessionService) CleanupExpired() (int64, error)         { return 0, nil }
func (s *stubSessionService) EnsureCSRFToken(string) (string, error) { return "", nil }
func (s *stubSessionService) NewSessionID() string                   { return "generated-sid" }
func (s *stubSessionService) TTL() time.Duration {
	if s.ttlValue != 0 {
		return s.ttlValue
	}
	return 24 * time.Hour
}

func newTestLoader(sessions service.SessionServiceInterface) *SessionLoader {
	tokens := security.NewSessionTokenManager("bubbles-cafe-test", "loader-test-secret")
	cookies := security.NewCookieManager("bubbles_sid", "", false, "lax")
	return NewSessionLoader(sessions, tokens, cookies)
}

func captureSessionHandler(captured **domain.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestSessionLoaderResolvesCookieSessionAndTouches(t *testing.T) {
	live := &domain.Session{SessionID: "sid-live", CSRFToken: "tok", Status: domain.SessionStatusActive}
	stub := &stubSessionService{
		getFn: func(sessionID string) (*domain.Session, error) {
			if sessionID != "sid-live" {
				t.Fatalf("unexpected lookup for %q", sessionID)
			}
			return live, nil
		},
	}
	loader := newTestLoader(stub)

	var seen *domain.Session
	handler := loader.Middleware()(captureSessionHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.AddCookie(&http.Cookie{Name: "bubbles_sid", Value: "sid-live"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == nil || seen.SessionID != "sid-live" {
		t.Fatalf("expected live session in context, got %+v", seen)
	}
	if len(stub.touched) != 1 || stub.touched[0] != "sid-live" {
		t.Fatalf("expected one touch of sid-live, got %v", stub.touched)
	}
}

func TestSessionLoaderResolvesBearerToken(t *testing.T) {
	tokens := security.NewSessionTokenManager("bubbles-cafe-test", "loader-test-secret")
	signed, err := tokens.Sign("sid-bearer", nil, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	stub := &stubSessionService{
		getFn: func(sessionID string) (*domain.Session, error) {
			return &domain.Session{SessionID: sessionID, Status: domain.SessionStatusActive}, nil
		},
	}
	loader := newTestLoader(stub)

	var seen *domain.Session
	handler := loader.Middleware()(captureSessionHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == nil || seen.SessionID != "sid-bearer" {
		t.Fatalf("expected bearer session in context, got %+v", seen)
	}
}

func TestSessionLoaderCreatesAnonymousSessionOnSafeRequests(t *testing.T) {
	stub := &stubSessionService{}
	loader := newTestLoader(stub)

	var seen *domain.Session
	handler := loader.Middleware()(captureSessionHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == nil || seen.SessionID != "generated-sid" {
		t.Fatalf("expected a fresh anonymous session, got %+v", seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "bubbles_sid" || cookies[0].Value != "generated-sid" {
		t.Fatalf("expected session cookie to be set, got %v", cookies)
	}
}

func TestSessionLoaderLeavesMutatingRequestsSessionless(t *testing.T) {
	stub := &stubSessionService{
		setFn: func(string, service.SessionData) (*domain.Session, error) {
			t.Fatal("mutating requests must not create sessions")
			return nil, nil
		},
	}
	loader := newTestLoader(stub)

	var seen *domain.Session
	reached := false
	handler := loader.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		seen = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !reached {
		t.Fatal("loader should pass mutating requests through for the guard to reject")
	}
	if seen != nil {
		t.Fatalf("expected no session in context, got %+v", seen)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("no cookie should be issued on a mutating request without a session")
	}
}

func TestSessionLoaderIgnoresStaleCookie(t *testing.T) {
	stub := &stubSessionService{}
	loader := newTestLoader(stub)

	var seen *domain.Session
	handler := loader.Middleware()(captureSessionHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.AddCookie(&http.Cookie{Name: "bubbles_sid", Value: "sid-expired"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == nil || seen.SessionID != "generated-sid" {
		t.Fatalf("expected replacement anonymous session, got %+v", seen)
	}
}
