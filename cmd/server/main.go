package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FrancoisMichell/seirin-sub000/internal/config"
	"github.com/FrancoisMichell/seirin-sub000/internal/database"
	"github.com/FrancoisMichell/seirin-sub000/internal/events"
	"github.com/FrancoisMichell/seirin-sub000/internal/handler"
	"github.com/FrancoisMichell/seirin-sub000/internal/logger"
	"github.com/FrancoisMichell/seirin-sub000/internal/metrics"
	"github.com/FrancoisMichell/seirin-sub000/internal/repository"
	"github.com/FrancoisMichell/seirin-sub000/internal/router"
	"github.com/FrancoisMichell/seirin-sub000/internal/service"
	"github.com/FrancoisMichell/seirin-sub000/internal/validator"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("timezone", cfg.Timezone.String()).
		Msg("Starting Seirin backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	m := metrics.New()
	broker := events.NewBroker(rdb)

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	classRepo := repository.NewClassRepository(pool)
	sessionRepo := repository.NewClassSessionRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)
	tokenRepo := repository.NewTokenRepository(rdb)
	txManager := database.NewTxManager(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	hasher := service.PasswordHasher{Cost: cfg.BcryptCost}
	userService := service.NewUserService(userRepo, txManager, hasher, logger.Component(log, "user_service"))
	authService := service.NewAuthService(
		service.AuthConfig{Secret: cfg.JWTSecret, Expiry: cfg.JWTExpiry},
		userRepo, hasher, tokenRepo, logger.Component(log, "auth_service"),
	)
	classService := service.NewClassService(classRepo, sessionRepo, userService, logger.Component(log, "class_service"))
	sessionService := service.NewClassSessionService(
		sessionRepo, classService, userService, m, cfg.Timezone, logger.Component(log, "class_session_service"),
	)
	attendanceService := service.NewAttendanceService(
		attendanceRepo, sessionService, classService, userService, txManager, broker, m,
		logger.Component(log, "attendance_service"),
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService, userService),
		Student:      handler.NewStudentHandler(userService),
		Class:        handler.NewClassHandler(classService),
		ClassSession: handler.NewClassSessionHandler(sessionService),
		Attendance:   handler.NewAttendanceHandler(attendanceService),
		LiveBoard: handler.NewLiveBoardHandler(
			sessionService, attendanceService, handler.BrokerFeed(broker), m, log, cfg.AllowedOrigins,
		),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, m, log, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
