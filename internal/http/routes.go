package http

import (
	"taskhive/internal/config"
	"taskhive/internal/http/handlers"
	"taskhive/internal/http/middleware"
	"taskhive/internal/repository"
	"taskhive/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, version string) {
	tokens := service.NewTokenService(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	h := handlers.NewHandler(
		repository.NewUserRepository(db),
		repository.NewTaskRepository(db),
		tokens,
		cfg.BcryptCost,
	)
	healthHandler := handlers.NewHealthHandler(db, version)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// Login and register get a tighter window than the task API: both run
	// bcrypt on every attempt and are the two brute-forceable endpoints.
	authRL := middleware.RedisRateLimit(cfg.AuthRateLimit, cfg.AuthRateWindow)
	apiRL := middleware.RedisRateLimit(cfg.APIRateLimit, cfg.APIRateWindow)

	RegisterAPIRoutes(r, h, authRL, apiRL)
}

// RegisterAPIRoutes mounts the auth and task endpoints. Split out from
// RegisterRoutes so tests can mount the same surface with in-memory
// repositories and no limiter.
func RegisterAPIRoutes(r gin.IRouter, h *handlers.Handler, mw ...gin.HandlerFunc) {
	var authRL, apiRL gin.HandlerFunc
	if len(mw) > 0 {
		authRL = mw[0]
	}
	if len(mw) > 1 {
		apiRL = mw[1]
	}

	auth := r.Group("/auth")
	if authRL != nil {
		auth.Use(authRL)
	}
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)

	tasks := r.Group("/tasks")
	if apiRL != nil {
		tasks.Use(apiRL)
	}
	tasks.Use(middleware.RequireAuth(h.Tokens))
	tasks.GET("", h.ListTasks)
	tasks.POST("", h.CreateTask)
	tasks.PATCH("/:id", h.UpdateTask)
	tasks.DELETE("/:id", h.DeleteTask)
	tasks.PATCH("/:id/toggle", h.ToggleTask)
}
