package events

import (
	"context"

	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/messaging"
)

// LedgerEventPublisher publishes ledger events to the notification sink.
// All methods are fire-and-forget: a publish failure is logged, never
// surfaced to the committing caller.
type LedgerEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewLedgerEventPublisher creates a new ledger event publisher
func NewLedgerEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*LedgerEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeLedgerEvents, "ledger-service", log)
	if err != nil {
		return nil, err
	}

	return &LedgerEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishStockReceived publishes a stock received event
func (p *LedgerEventPublisher) PublishStockReceived(ctx context.Context, e messaging.StockReceivedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockReceived, e); err != nil {
		p.logger.Error().Err(err).Int64("batch_id", e.BatchID).Msg("failed to publish stock received event")
	}
}

// PublishStockDispensed publishes a stock dispensed event
func (p *LedgerEventPublisher) PublishStockDispensed(ctx context.Context, e messaging.StockDispensedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockDispensed, e); err != nil {
		p.logger.Error().Err(err).Int64("dispense_id", e.DispenseID).Msg("failed to publish stock dispensed event")
	}
}

// PublishPurchaseRecorded publishes a purchase recorded event
func (p *LedgerEventPublisher) PublishPurchaseRecorded(ctx context.Context, e messaging.PurchaseRecordedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventPurchaseRecorded, e); err != nil {
		p.logger.Error().Err(err).Int64("purchase_id", e.PurchaseID).Msg("failed to publish purchase recorded event")
	}
}

// PublishAlertRaised publishes one alert tuple to the sink
func (p *LedgerEventPublisher) PublishAlertRaised(ctx context.Context, e messaging.AlertRaisedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventAlertRaised, e); err != nil {
		p.logger.Error().Err(err).Str("category", e.Category).Msg("failed to publish alert event")
	}
}
