package di

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/app"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/config"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/database"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/handler"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/middleware"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/router"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/observability"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/repository"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/security"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

var ConfigSet = wire.NewSet(provideConfig)

var ObservabilitySet = wire.NewSet(provideLogger)

var RuntimeInfraSet = wire.NewSet(provideOpenDB, provideRedisClient, provideLimiter)

var RepositorySet = wire.NewSet(
	repository.NewSessionRepository,
	repository.NewUserRepository,
	repository.NewPostRepository,
	repository.NewCommentRepository,
	repository.NewBookmarkRepository,
	repository.NewLikeRepository,
)

var SecuritySet = wire.NewSet(provideCookieManager, provideSessionTokenManager)

var ServiceSet = wire.NewSet(
	provideSessionService,
	provideAuthService,
	provideContentCache,
	provideContentService,
	provideIdempotencyStore,
	provideStorageService,
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewPostHandler,
	handler.NewCommentHandler,
	handler.NewReactionHandler,
	handler.NewAdminHandler,
	middleware.NewSessionLoader,
	provideRouterDependencies,
	provideRouterHandler,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideConfig() (*config.Config, error) {
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

// provideRedisClient returns nil when no redis is configured; the limiter
// provider falls back to the in-process implementation in that case.
func provideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func provideLimiter(client *redis.Client) middleware.Limiter {
	if client == nil {
		return middleware.NewLocalFixedWindowLimiter()
	}
	return middleware.NewRedisFixedWindowLimiter(client)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.SessionCookieName, cfg.CookieDomain, cfg.CookieSecure, cfg.CookieSameSite)
}

func provideSessionTokenManager(cfg *config.Config) *security.SessionTokenManager {
	return security.NewSessionTokenManager(cfg.SessionTokenIssuer, cfg.SessionTokenSecret)
}

func provideSessionService(repo repository.SessionRepository, tokens *security.SessionTokenManager, cfg *config.Config) service.SessionServiceInterface {
	return service.NewSessionService(repo, tokens, cfg.SessionTTL)
}

func provideAuthService(users repository.UserRepository) service.AuthServiceInterface {
	return service.NewAuthService(users)
}

// provideContentCache prefers redis so invalidations reach every replica;
// without redis each process keeps its own copy.
func provideContentCache(client *redis.Client) service.ContentCacheStore {
	if client == nil {
		return service.NewInMemoryContentCacheStore()
	}
	return service.NewRedisContentCacheStore(client, "")
}

func provideContentService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	bookmarks repository.BookmarkRepository,
	likes repository.LikeRepository,
	cache service.ContentCacheStore,
	cfg *config.Config,
) service.ContentServiceInterface {
	return service.NewContentService(posts, comments, bookmarks, likes, cache, cfg.PostCacheTTL)
}

func provideIdempotencyStore(client *redis.Client, db *gorm.DB) service.IdempotencyStore {
	if client == nil {
		return service.NewDBIdempotencyStore(db)
	}
	return service.NewRedisIdempotencyStore(client, "")
}

func provideStorageService(cfg *config.Config) (service.StorageService, error) {
	if !cfg.CoverUploadsOn {
		return service.NewDisabledStorageService(), nil
	}
	return service.NewMinIOStorageService(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
}

func provideRouterDependencies(
	auth *handler.AuthHandler,
	posts *handler.PostHandler,
	comments *handler.CommentHandler,
	reactions *handler.ReactionHandler,
	admin *handler.AdminHandler,
	loader *middleware.SessionLoader,
	authSvc service.AuthServiceInterface,
	limiter middleware.Limiter,
	idempotency service.IdempotencyStore,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		Auth:              auth,
		Posts:             posts,
		Comments:          comments,
		Reactions:         reactions,
		Admin:             admin,
		SessionLoader:     loader,
		AuthService:       authSvc,
		Limiter:           limiter,
		IdempotencyStore:  idempotency,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		AuthRateLimitRPM:  cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:   cfg.APIRateLimitPerMin,
		RateLimitBypasses: cfg.RateLimitTrustedCIDRs,
	}
}

func provideRouterHandler(dep router.Dependencies) http.Handler {
	return router.New(dep)
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// MigrationRunner bundles exactly what the migrate subcommand needs.
type MigrationRunner struct {
	DB *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{DB: db}
}

func (m *MigrationRunner) Run() error {
	return database.Migrate(m.DB)
}
