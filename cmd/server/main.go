package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tutorhub/scheduler/internal/api"
	"github.com/tutorhub/scheduler/internal/app"
	"github.com/tutorhub/scheduler/internal/cache"
	"github.com/tutorhub/scheduler/internal/config"
	"github.com/tutorhub/scheduler/internal/notify"
	"github.com/tutorhub/scheduler/internal/repository"
	"github.com/tutorhub/scheduler/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// A nil *AvailabilityCache is a valid no-op cache, so Redis stays optional.
	var windowCache *cache.AvailabilityCache
	if cfg.RedisAddr != "" {
		windowCache, err = cache.New(cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			logger.Fatal("Failed to connect redis", zap.Error(err))
		}
	} else {
		logger.Warn("REDIS_ADDR not set, availability caching disabled")
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram notifier", zap.Error(err))
		}
		notifier = tg
	} else {
		logger.Warn("TELEGRAM_TOKEN not set, booking notifications disabled")
	}

	ruleRepo := repository.NewRuleRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	availabilityService := service.NewAvailabilityService(ruleRepo, slotRepo, bookingRepo, windowCache, logger)
	slotService := service.NewSlotService(ruleRepo, slotRepo, bookingRepo, userRepo, windowCache, logger)
	bookingService := service.NewBookingService(
		ruleRepo, slotRepo, bookingRepo, userRepo, windowCache, notifier, service.SystemClock,
		time.Duration(cfg.MinLessonMin)*time.Minute, cfg.PendingTTL, logger)

	scheduler := app.NewScheduler(bookingService, 5*time.Minute, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	handlers := api.NewHandlers(availabilityService, slotService, bookingService, logger)
	router := api.NewRouter(handlers, logger, cfg.Environment)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}
