package service

import (
	"context"
	"time"

	"github.com/curevet/ledger-backend/internal/ledger/events"
	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/messaging"
)

// AlertScheduler runs the alert engine on a fixed interval and publishes
// every surfaced condition. A failed scan is logged and retried on the
// next tick.
type AlertScheduler struct {
	engine    *AlertEngine
	publisher *events.LedgerEventPublisher
	interval  time.Duration
	logger    *logger.Logger
	cancel    context.CancelFunc
}

// NewAlertScheduler creates a new alert scheduler
func NewAlertScheduler(
	engine *AlertEngine,
	publisher *events.LedgerEventPublisher,
	interval time.Duration,
	log *logger.Logger,
) *AlertScheduler {
	return &AlertScheduler{
		engine:    engine,
		publisher: publisher,
		interval:  interval,
		logger:    log,
	}
}

// Start launches the scan loop. The first scan runs immediately, then on
// every interval tick until Stop or context cancellation.
func (s *AlertScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("alert scheduler started")

		s.run(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("alert scheduler stopped")
				return
			case <-ticker.C:
				s.run(ctx)
			}
		}
	}()
}

// Stop cancels the scan loop
func (s *AlertScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *AlertScheduler) run(ctx context.Context) {
	alerts, err := s.engine.Fetch(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("alert scan failed")
		return
	}

	for _, a := range alerts {
		s.publisher.PublishAlertRaised(ctx, messaging.AlertRaisedEvent{
			Category: a.Category,
			Subject:  a.Subject,
			Detail:   a.Detail,
		})
	}

	if len(alerts) > 0 {
		s.logger.Info().Int("count", len(alerts)).Msg("alerts published")
	}
}
