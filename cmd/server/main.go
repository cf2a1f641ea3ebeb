package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/cache"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/config"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/database"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/handler"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/logger"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/repository"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/router"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/service"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/simulation"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/validator"
	"github.com/rs/zerolog"
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
		Msg("Starting UniTOLC Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// ─── Initialize Repositories ───────────────────────────────────────
	store := repository.NewSimulationStore(pool)
	examTypeRepo := repository.NewExamTypeRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	answerCache := cache.NewAnswerCache(rdb)

	// ─── Initialize Simulation Engine ──────────────────────────────────
	engine := simulation.New(store, examTypeRepo, questionRepo,
		simulation.WithAnswerCache(answerCache),
		simulation.WithLogger(log),
		simulation.WithAutosaveInterval(cfg.AutosaveInterval),
		simulation.WithBreakDuration(cfg.BreakDuration),
		simulation.WithBreakMinWait(cfg.BreakMinWait),
	)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	simService := service.NewSimulationService(engine, examTypeRepo, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Simulation: handler.NewSimulationHandler(simService),
		WS:         handler.NewWSHandler(simService, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Flush and release every live simulation so sessions stay
	// resumable after restart.
	simService.Shutdown(shutdownCtx)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
