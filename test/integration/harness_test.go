package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/database"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/handler"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/middleware"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/router"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/security"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

const (
	testCookieName = "bubbles_sid"
	testSessionTTL = 24 * time.Hour
)

type testEnv struct {
	db       *gorm.DB
	server   *httptest.Server
	sessions service.SessionServiceInterface
	users    repository.UserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sessionRepo := repository.NewSessionRepository(db)
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	tokens := security.NewSessionTokenManager("bubbles-cafe-test", "integration-test-secret-0123456789ab")
	cookies := security.NewCookieManager(testCookieName, "", false, "lax")

	sessionSvc := service.NewSessionService(sessionRepo, tokens, testSessionTTL)
	authSvc := service.NewAuthService(userRepo)
	contentSvc := service.NewContentService(postRepo, commentRepo, bookmarkRepo, likeRepo, service.NewInMemoryContentCacheStore(), time.Minute)
	storageSvc := service.NewDisabledStorageService()

	dep := router.Dependencies{
		Auth:             handler.NewAuthHandler(authSvc, sessionSvc, cookies),
		Posts:            handler.NewPostHandler(contentSvc, authSvc, storageSvc),
		Comments:         handler.NewCommentHandler(contentSvc, authSvc),
		Reactions:        handler.NewReactionHandler(contentSvc),
		Admin:            handler.NewAdminHandler(sessionSvc, contentSvc),
		SessionLoader:    middleware.NewSessionLoader(sessionSvc, tokens, cookies),
		AuthService:      authSvc,
		Limiter:          middleware.NewLocalFixedWindowLimiter(),
		IdempotencyStore: service.NewDBIdempotencyStore(db),
		IdempotencyTTL:   time.Minute,
		CORSOrigins:      []string{"http://localhost:3000"},
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  10000,
	}

	srv := httptest.NewServer(router.New(dep))
	t.Cleanup(srv.Close)

	return &testEnv{db: db, server: srv, sessions: sessionSvc, users: userRepo}
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, apiEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env apiEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope from %q: %v", string(raw), err)
		}
	}
	return resp, env
}

func fetchCSRFToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	resp, env := doJSON(t, client, http.MethodGet, baseURL+"/api/csrf-token", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("csrf token fetch: expected 200, got %d", resp.StatusCode)
	}
	var payload struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode csrf payload: %v", err)
	}
	if payload.CSRFToken == "" {
		t.Fatal("expected a non-empty csrf token")
	}
	return payload.CSRFToken
}

func registerUser(t *testing.T, client *http.Client, baseURL, username, email, password string) {
	t.Helper()
	token := fetchCSRFToken(t, client, baseURL)
	resp, env := doJSON(t, client, http.MethodPost, baseURL+"/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, map[string]string{middleware.CSRFHeader: token})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%#v)", resp.StatusCode, env.Error)
	}
}

func promoteToAdmin(t *testing.T, env *testEnv, email string) {
	t.Helper()
	if err := database.PromoteAdmin(env.db, email); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
}
