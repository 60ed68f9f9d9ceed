package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/handler"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/middleware"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/http/response"
	"github.com/bubbleteameimei/Bubbles-cafe-sub002/internal/service"
)

type Dependencies struct {
	Auth      *handler.AuthHandler
	Posts     *handler.PostHandler
	Comments  *handler.CommentHandler
	Reactions *handler.ReactionHandler
	Admin     *handler.AdminHandler

	SessionLoader *middleware.SessionLoader
	AuthService   service.AuthServiceInterface
	Limiter       middleware.Limiter

	IdempotencyStore service.IdempotencyStore
	IdempotencyTTL   time.Duration

	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	RateLimitBypasses []string
}

// New assembles the full route tree. Health probes sit outside the session
// scope so they never mint anonymous sessions; everything under /api passes
// through the session loader and the CSRF guard.
func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   dep.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CSRFHeader, middleware.IdempotencyKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
	})

	bypass := middleware.NewRequestBypassEvaluator(middleware.RequestBypassConfig{
		EnableProbeBypass: true,
		TrustedCIDRs:      dep.RateLimitBypasses,
	})
	apiLimiter := middleware.NewRateLimiter(dep.Limiter, dep.APIRateLimitRPM, time.Minute, middleware.FailOpen, "api").WithBypass(bypass)
	authLimiter := middleware.NewRateLimiter(dep.Limiter, dep.AuthRateLimitRPM, time.Minute, middleware.FailClosed, "auth").WithBypass(bypass)

	r.Route("/api", func(api chi.Router) {
		api.Use(apiLimiter.Middleware())
		api.Use(dep.SessionLoader.Middleware())
		api.Use(middleware.RequestGuard())
		api.Use(middleware.NewIdempotency(dep.IdempotencyStore, dep.IdempotencyTTL).Middleware())

		api.Get("/csrf-token", dep.Auth.CSRFToken)

		api.Route("/auth", func(ar chi.Router) {
			ar.With(authLimiter.Middleware()).Post("/register", dep.Auth.Register)
			ar.With(authLimiter.Middleware()).Post("/login", dep.Auth.Login)
			ar.Post("/logout", dep.Auth.Logout)
			ar.With(middleware.RequireUser()).Post("/logout-all", dep.Auth.LogoutAll)
			ar.With(middleware.RequireUser()).Get("/me", dep.Auth.Me)
		})

		api.Route("/posts", func(pr chi.Router) {
			pr.Get("/", dep.Posts.List)
			pr.With(middleware.RequireUser()).Post("/", dep.Posts.Create)

			pr.Route("/{id:[0-9]+}", func(ir chi.Router) {
				ir.With(middleware.RequireUser()).Put("/", dep.Posts.Update)
				ir.With(middleware.RequireUser()).Delete("/", dep.Posts.Delete)
				ir.With(middleware.RequireUser()).Post("/cover", dep.Posts.UploadCover)

				ir.Get("/comments", dep.Comments.List)
				ir.Post("/comments", dep.Comments.Create)

				ir.With(middleware.RequireUser()).Post("/bookmark", dep.Reactions.SaveBookmark)
				ir.With(middleware.RequireUser()).Delete("/bookmark", dep.Reactions.RemoveBookmark)
				ir.With(middleware.RequireUser()).Post("/like", dep.Reactions.Like)
				ir.With(middleware.RequireUser()).Delete("/like", dep.Reactions.Unlike)
			})

			pr.Get("/{slug}", dep.Posts.GetBySlug)
			pr.Get("/{slug}/cover", dep.Posts.CoverURL)
		})

		api.With(middleware.RequireUser()).Get("/bookmarks", dep.Reactions.ListBookmarks)
		api.With(middleware.RequireUser()).Delete("/comments/{commentID:[0-9]+}", dep.Comments.Delete)

		api.Route("/admin", func(adm chi.Router) {
			adm.Use(middleware.RequireAdmin(dep.AuthService))

			adm.Get("/sessions", dep.Admin.ListSessions)
			adm.Get("/sessions/count", dep.Admin.CountSessions)
			adm.Post("/sessions/cleanup", dep.Admin.CleanupExpiredSessions)
			adm.Delete("/sessions", dep.Admin.ClearSessions)
			adm.Delete("/users/{userID:[0-9]+}/sessions", dep.Admin.InvalidateUserSessions)

			adm.Get("/comments", dep.Admin.ListCommentsForModeration)
			adm.Post("/comments/{commentID:[0-9]+}/moderate", dep.Admin.ModerateComment)
		})
	})

	return r
}
