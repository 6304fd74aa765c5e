package scheduler

import (
	"context"
	"time"

	"github.com/freshlyhq/freshly-backend/internal/app/service"
	"github.com/freshlyhq/freshly-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// PaymentSweepScheduler periodically cancels orders whose payment was
// never completed, releasing their reserved stock.
type PaymentSweepScheduler struct {
	cron           *cron.Cron
	paymentService service.PaymentService
	pendingExpiry  time.Duration
}

func NewPaymentSweepScheduler(paymentService service.PaymentService, pendingExpiry time.Duration) *PaymentSweepScheduler {
	return &PaymentSweepScheduler{
		cron:           cron.New(),
		paymentService: paymentService,
		pendingExpiry:  pendingExpiry,
	}
}

// Start runs the sweep every 5 minutes.
func (s *PaymentSweepScheduler) Start() error {
	_, err := s.cron.AddFunc("*/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		swept, err := s.paymentService.SweepStalePending(ctx, s.pendingExpiry)
		if err != nil {
			logger.Error("Stale payment sweep failed", err, nil)
			return
		}

		if swept > 0 {
			logger.Info("Swept stale pending orders", map[string]interface{}{
				"count": swept,
			})
		}
	})

	if err != nil {
		logger.Error("Failed to schedule payment sweep", err, nil)
		return err
	}

	s.cron.Start()
	logger.Info("Payment sweep scheduler started", map[string]interface{}{
		"interval":       "5m",
		"pending_expiry": s.pendingExpiry.String(),
	})

	return nil
}

func (s *PaymentSweepScheduler) Stop() {
	s.cron.Stop()
	logger.Info("Payment sweep scheduler stopped", nil)
}
