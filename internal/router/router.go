package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizbank-backend/internal/config"
	"github.com/stemsi/quizbank-backend/internal/handler"
	"github.com/stemsi/quizbank-backend/internal/metrics"
	"github.com/stemsi/quizbank-backend/internal/middleware"
	"github.com/stemsi/quizbank-backend/internal/model"
	"github.com/stemsi/quizbank-backend/internal/response"
	"github.com/stemsi/quizbank-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Attempt   *handler.AttemptHandler
	Question  *handler.QuestionHandler
	User      *handler.UserHandler
	Dashboard *handler.DashboardHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.Middleware())

	// Exports are already-packed binaries; leave them alone.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Skipper: middleware.SkipExports,
	}))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	// Rate limiter for login (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	requireUser := []gin.HandlerFunc{
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)

		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), middleware.CheckSingleDeviceSession(authService), handlers.Auth.Me)
	}

	// ─── 2. Learner Group (JWT + Single Device) ────────────────────────
	learnerAPI := router.Group("/api/v1")
	learnerAPI.Use(requireUser...)
	learnerAPI.Use(
		middleware.NoStore(),
		middleware.RequirePermission(model.PermissionAttemptsTake),
	)
	{
		learnerAPI.GET("/dashboard", handlers.Dashboard.GetLearnerDashboard)

		learnerAPI.POST("/attempts", handlers.Attempt.Start)
		learnerAPI.GET("/attempts", handlers.Attempt.History)
		learnerAPI.GET("/attempts/:id/questions/:n", handlers.Attempt.ViewQuestion)
		learnerAPI.PUT("/attempts/:id/questions/:n/answer", handlers.Attempt.ConfirmAnswer)
		learnerAPI.POST("/attempts/:id/questions/:n/skip", handlers.Attempt.SkipQuestion)
		learnerAPI.POST("/attempts/:id/finish", handlers.Attempt.Finish)
		learnerAPI.GET("/attempts/:id/result", handlers.Attempt.GetResult)
		learnerAPI.GET("/attempts/:id/export", handlers.Attempt.Export)
	}

	// ─── 3. WebSocket Group (token in query) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(requireUser...)
	ws.Use(middleware.RequirePermission(model.PermissionAttemptsTake))
	{
		ws.GET("/attempts/:id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(requireUser...)
	adminAPI.Use(middleware.RequireAdmin(), middleware.NoStore())
	{
		// Dashboard
		adminAPI.GET("/dashboard",
			handlers.Dashboard.GetDashboardData, // Open to all admins
		)

		// Question bank
		adminAPI.POST("/questions/upload",
			middleware.RequirePermission(model.PermissionQuestionsUpload),
			handlers.Question.UploadBank,
		)
		adminAPI.GET("/questions/stats",
			middleware.RequirePermission(model.PermissionQuestionsRead),
			handlers.Question.GetStats,
		)

		// User management
		adminAPI.GET("/users",
			middleware.RequirePermission(model.PermissionUsersRead),
			handlers.User.ListUsers,
		)
		adminAPI.POST("/users",
			middleware.RequirePermission(model.PermissionUsersWrite),
			handlers.User.CreateUser,
		)
		adminAPI.PUT("/users/:id/password",
			middleware.RequirePermission(model.PermissionUsersWrite),
			handlers.User.ResetPassword,
		)
	}

	return router
}
