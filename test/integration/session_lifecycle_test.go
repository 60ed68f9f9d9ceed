package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/middleware"
)

func TestRegisterLoginLogoutLifecycle(t *testing.T) {
	env := newTestEnv(t)
	browser := newBrowser(t)
	base := env.server.URL

	registerUser(t, browser, base, "lifecycle", "lifecycle@example.com", "password123")

	resp, envl := doJSON(t, browser, http.MethodGet, base+"/api/auth/me", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me after register: expected 200, got %d (%#v)", resp.StatusCode, envl.Error)
	}
	var me struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(envl.Data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Username != "lifecycle" {
		t.Fatalf("unexpected user %q", me.Username)
	}

	token := fetchCSRFToken(t, browser, base)
	resp, _ = doJSON(t, browser, http.MethodPost, base+"/api/auth/logout", nil, map[string]string{middleware.CSRFHeader: token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, browser, http.MethodGet, base+"/api/auth/me", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", resp.StatusCode)
	}

	token = fetchCSRFToken(t, browser, base)
	resp, envl = doJSON(t, browser, http.MethodPost, base+"/api/auth/login", map[string]string{
		"email":    "lifecycle@example.com",
		"password": "password123",
	}, map[string]string{middleware.CSRFHeader: token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%#v)", resp.StatusCode, envl.Error)
	}

	resp, _ = doJSON(t, browser, http.MethodGet, base+"/api/auth/me", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me after login: expected 200, got %d", resp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	browser := newBrowser(t)
	base := env.server.URL

	registerUser(t, browser, base, "victim", "victim@example.com", "password123")

	token := fetchCSRFToken(t, browser, base)
	resp, envl := doJSON(t, browser, http.MethodPost, base+"/api/auth/login", map[string]string{
		"email":    "victim@example.com",
		"password": "wrong-password",
	}, map[string]string{middleware.CSRFHeader: token})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	if envl.Error == nil || envl.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %#v", envl.Error)
	}
}

func TestBearerTokenAuthenticatesWithoutCookie(t *testing.T) {
	env := newTestEnv(t)
	browser := newBrowser(t)
	base := env.server.URL

	registerUser(t, browser, base, "apiuser", "apiuser@example.com", "password123")
	token := fetchCSRFToken(t, browser, base)
	resp, envl := doJSON(t, browser, http.MethodPost, base+"/api/auth/login", map[string]string{
		"email":    "apiuser@example.com",
		"password": "password123",
	}, map[string]string{middleware.CSRFHeader: token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(envl.Data, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Token == "" {
		t.Fatal("expected a bearer session token from login")
	}

	// fresh client with no cookies at all
	bare := &http.Client{}
	resp, envl = doJSON(t, bare, http.MethodGet, base+"/api/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me via bearer: expected 200, got %d (%#v)", resp.StatusCode, envl.Error)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	env := newTestEnv(t)
	base := env.server.URL

	laptop := newBrowser(t)
	registerUser(t, laptop, base, "roamer", "roamer@example.com", "password123")

	phone := newBrowser(t)
	token := fetchCSRFToken(t, phone, base)
	resp, _ := doJSON(t, phone, http.MethodPost, base+"/api/auth/login", map[string]string{
		"email":    "roamer@example.com",
		"password": "password123",
	}, map[string]string{middleware.CSRFHeader: token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("phone login: expected 200, got %d", resp.StatusCode)
	}

	// both devices are live
	for name, c := range map[string]*http.Client{"laptop": laptop, "phone": phone} {
		if resp, _ := doJSON(t, c, http.MethodGet, base+"/api/auth/me", nil, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s should be logged in, got %d", name, resp.StatusCode)
		}
	}

	token = fetchCSRFToken(t, laptop, base)
	resp, envl := doJSON(t, laptop, http.MethodPost, base+"/api/auth/logout-all", nil, map[string]string{middleware.CSRFHeader: token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout-all: expected 200, got %d (%#v)", resp.StatusCode, envl.Error)
	}
	var result struct {
		Revoked int64 `json:"revoked"`
	}
	if err := json.Unmarshal(envl.Data, &result); err != nil {
		t.Fatalf("decode logout-all: %v", err)
	}
	if result.Revoked < 2 {
		t.Fatalf("expected at least 2 revoked sessions, got %d", result.Revoked)
	}

	for name, c := range map[string]*http.Client{"laptop": laptop, "phone": phone} {
		if resp, _ := doJSON(t, c, http.MethodGet, base+"/api/auth/me", nil, nil); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s should be logged out, got %d", name, resp.StatusCode)
		}
	}
}

func TestAdminSessionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	base := env.server.URL

	admin := newBrowser(t)
	registerUser(t, admin, base, "keeper", "keeper@example.com", "password123")
	promoteToAdmin(t, env, "keeper@example.com")

	visitor := newBrowser(t)
	fetchCSRFToken(t, visitor, base)

	resp, envl := doJSON(t, admin, http.MethodGet, base+"/api/admin/sessions/count", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("count sessions: expected 200, got %d (%#v)", resp.StatusCode, envl.Error)
	}
	var count struct {
		Active int64 `json:"active"`
	}
	if err := json.Unmarshal(envl.Data, &count); err != nil {
		t.Fatalf("decode count: %v", err)
	}
	if count.Active < 2 {
		t.Fatalf("expected at least admin + visitor sessions, got %d", count.Active)
	}

	resp, envl = doJSON(t, admin, http.MethodGet, base+"/api/admin/sessions", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list sessions: expected 200, got %d", resp.StatusCode)
	}

	token := fetchCSRFToken(t, admin, base)
	resp, _ = doJSON(t, admin, http.MethodPost, base+"/api/admin/sessions/cleanup", nil, map[string]string{middleware.CSRFHeader: token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cleanup: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, visitor, http.MethodGet, base+"/api/admin/sessions", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		t.Fatalf("visitor must not reach admin routes, got %d", resp.StatusCode)
	}
}
