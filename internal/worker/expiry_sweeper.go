package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stashspot/service-booking/internal/application"
)

// ExpirySweeper periodically expires pending bookings whose hold deadline
// passed, releasing their intervals back to the pool.
type ExpirySweeper struct {
	service   *application.BookingService
	holdTTL   time.Duration
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

// NewExpirySweeper creates an ExpirySweeper.
func NewExpirySweeper(service *application.BookingService, holdTTL, interval time.Duration, batchSize int, logger *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		service:   service,
		holdTTL:   holdTTL,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass.
func (s *ExpirySweeper) Sweep(ctx context.Context) {
	if _, err := s.service.ExpirePendingBookings(ctx, s.holdTTL, s.batchSize); err != nil {
		s.logger.Error("hold expiry sweep failed", zap.Error(err))
	}
}
