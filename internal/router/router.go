package router

import (
	"context"
	"net/http"
	"time"

	"github.com/FrancoisMichell/seirin-sub000/internal/config"
	"github.com/FrancoisMichell/seirin-sub000/internal/handler"
	"github.com/FrancoisMichell/seirin-sub000/internal/logger"
	"github.com/FrancoisMichell/seirin-sub000/internal/metrics"
	"github.com/FrancoisMichell/seirin-sub000/internal/middleware"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Student      *handler.StudentHandler
	Class        *handler.ClassHandler
	ClassSession *handler.ClassSessionHandler
	Attendance   *handler.AttendanceHandler
	LiveBoard    *handler.LiveBoardHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work such as the login limiter's sweeper.
func SetupRouter(
	ctx context.Context,
	auth middleware.TokenValidator,
	handlers *Handlers,
	m *metrics.Metrics,
	log zerolog.Logger,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(
		response.RequestIDMiddleware(),
		logger.RequestLogger(log),
		middleware.Metrics(m),
		middleware.CompressWithOptions(middleware.CompressOptions{
			Level:         middleware.DefaultCompressOptions.Level,
			MinSize:       middleware.DefaultCompressOptions.MinSize,
			ExcludedPaths: []string{"/metrics", "/ws"},
		}),
	)

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireJWT := middleware.RequireJWT(auth)
	teacherOnly := middleware.RequireRole(model.RoleTeacher)

	// ─── Teacher auth ──────────────────────────────────────────────────
	loginLimiter := middleware.NewRateLimiter(ctx, cfg.LoginRateLimit, time.Minute)
	teacher := router.Group("/teacher", middleware.NoStore())
	{
		teacher.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		teacher.GET("/me", requireJWT, handlers.Auth.Me)
		teacher.POST("/logout", requireJWT, handlers.Auth.Logout)
	}

	// ─── Students ──────────────────────────────────────────────────────
	students := router.Group("/students", requireJWT)
	{
		students.POST("", teacherOnly, handlers.Student.Create)
		students.GET("", handlers.Student.List)
		students.GET("/:id", handlers.Student.Get)
		students.PATCH("/:id", teacherOnly, handlers.Student.Update)
	}

	// ─── Classes ───────────────────────────────────────────────────────
	classes := router.Group("/classes", requireJWT)
	{
		classes.POST("", teacherOnly, handlers.Class.Create)
		classes.GET("", handlers.Class.List)
		classes.GET("/:id", handlers.Class.Get)
		classes.PATCH("/:id", teacherOnly, handlers.Class.Update)
		classes.PATCH("/:id/activate", teacherOnly, handlers.Class.Activate)
		classes.PATCH("/:id/deactivate", teacherOnly, handlers.Class.Deactivate)
		classes.DELETE("/:id", teacherOnly, handlers.Class.Delete)
		classes.POST("/:id/enroll/:studentId", teacherOnly, handlers.Class.Enroll)
		classes.DELETE("/:id/enroll/:studentId", teacherOnly, handlers.Class.Unenroll)
	}

	// ─── Class sessions ────────────────────────────────────────────────
	sessions := router.Group("/class-sessions", requireJWT)
	{
		sessions.POST("", teacherOnly, handlers.ClassSession.Create)
		sessions.GET("", handlers.ClassSession.List)
		sessions.GET("/by-class/:classId", handlers.ClassSession.ByClass)
		sessions.GET("/by-teacher/:teacherId", handlers.ClassSession.ByTeacher)
		sessions.GET("/by-date-range", handlers.ClassSession.ByDateRange)
		sessions.GET("/:id", handlers.ClassSession.Get)
		sessions.PATCH("/:id", teacherOnly, handlers.ClassSession.Update)
		sessions.PATCH("/:id/activate", teacherOnly, handlers.ClassSession.Activate)
		sessions.PATCH("/:id/deactivate", teacherOnly, handlers.ClassSession.Deactivate)
		sessions.PATCH("/:id/start", teacherOnly, handlers.ClassSession.Start)
		sessions.PATCH("/:id/end", teacherOnly, handlers.ClassSession.End)
		sessions.DELETE("/:id", teacherOnly, handlers.ClassSession.Delete)
	}

	// ─── Attendances ───────────────────────────────────────────────────
	attendances := router.Group("/attendances", requireJWT)
	{
		attendances.POST("", teacherOnly, handlers.Attendance.Create)
		attendances.POST("/bulk/:sessionId", teacherOnly, handlers.Attendance.BulkCreate)
		attendances.GET("", handlers.Attendance.List)
		attendances.GET("/session/:sessionId", handlers.Attendance.BySession)
		attendances.GET("/student/:studentId", handlers.Attendance.ByStudent)
		attendances.GET("/:id", handlers.Attendance.Get)
		attendances.PATCH("/:id", teacherOnly, handlers.Attendance.Update)
		attendances.PATCH("/:id/mark-present", teacherOnly, handlers.Attendance.MarkPresent)
		attendances.PATCH("/:id/mark-late", teacherOnly, handlers.Attendance.MarkLate)
		attendances.PATCH("/:id/mark-absent", teacherOnly, handlers.Attendance.MarkAbsent)
		attendances.PATCH("/:id/mark-excused", teacherOnly, handlers.Attendance.MarkExcused)
		attendances.DELETE("/:id", teacherOnly, handlers.Attendance.Delete)
	}

	// ─── Live board (WebSocket auth via ?token=) ───────────────────────
	ws := router.Group("/ws", middleware.RequireWSAuth(auth))
	{
		ws.GET("/class-sessions/:id/attendance", teacherOnly, handlers.LiveBoard.Stream)
	}

	return router
}
