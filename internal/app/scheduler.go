package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tutorhub/scheduler/internal/service"
)

// Scheduler runs background maintenance. The scheduling core itself is pure;
// the only periodic work is reclaiming windows held by abandoned pending
// bookings.
type Scheduler struct {
	bookingService *service.BookingService
	interval       time.Duration
	logger         *zap.Logger
	stopChan       chan struct{}
}

func NewScheduler(bookingService *service.BookingService, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		bookingService: bookingService,
		interval:       interval,
		logger:         logger,
		stopChan:       make(chan struct{}),
	}
}

// Start launches the maintenance loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting maintenance scheduler", zap.Duration("interval", s.interval))

	go s.runPendingExpiryTask(ctx)
}

// Stop terminates the maintenance loop.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping maintenance scheduler")
	close(s.stopChan)
}

func (s *Scheduler) runPendingExpiryTask(ctx context.Context) {
	// First sweep right away so a restart does not extend stale holds.
	s.expirePending(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.expirePending(ctx)
		case <-s.stopChan:
			s.logger.Info("Pending expiry task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Pending expiry task cancelled")
			return
		}
	}
}

func (s *Scheduler) expirePending(ctx context.Context) {
	if err := s.bookingService.ExpireStalePending(ctx); err != nil {
		s.logger.Error("Failed to expire stale pending bookings", zap.Error(err))
	}
}
