package service

import (
	"context"

	"github.com/curevet/ledger-backend/internal/ledger/events"
	"github.com/curevet/ledger-backend/internal/ledger/repository"
	"github.com/curevet/ledger-backend/pkg/logger"
	"github.com/curevet/ledger-backend/pkg/messaging"
)

// CatalogService owns canonical item batches: intake, administrative
// correction, listing and the allocation queries used by visit entry.
type CatalogService struct {
	batchRepo *repository.BatchRepository
	publisher *events.LedgerEventPublisher
	logger    *logger.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	batchRepo *repository.BatchRepository,
	publisher *events.LedgerEventPublisher,
	log *logger.Logger,
) *CatalogService {
	return &CatalogService{
		batchRepo: batchRepo,
		publisher: publisher,
		logger:    log,
	}
}

// UpsertBatch creates a batch or restocks the one matching (name, expiry).
// Restock adds quantity; price, category, unit and reorder level are
// overwritten last-write-wins. Callers validate quantity/price signs at
// the edge; the catalog performs no business validation beyond that.
func (s *CatalogService) UpsertBatch(ctx context.Context, b *repository.Batch) error {
	intake := b.Quantity

	restocked, err := s.batchRepo.Upsert(ctx, b)
	if err != nil {
		return err
	}

	s.logger.Info().
		Int64("batch_id", b.ID).
		Str("item", b.Name).
		Int("intake", intake).
		Bool("restocked", restocked).
		Msg("batch intake committed")

	s.publisher.PublishStockReceived(ctx, messaging.StockReceivedEvent{
		BatchID:     b.ID,
		ItemName:    b.Name,
		Quantity:    intake,
		NewQuantity: b.Quantity,
		Expiry:      b.ExpirationDate,
		Restocked:   restocked,
	})

	return nil
}

// GetBatch gets a batch by ID
func (s *CatalogService) GetBatch(ctx context.Context, id int64) (*repository.Batch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

// UpdateBatch performs a full administrative overwrite of a batch
func (s *CatalogService) UpdateBatch(ctx context.Context, b *repository.Batch) error {
	return s.batchRepo.Update(ctx, b)
}

// DeleteBatch soft-deletes a batch: it disappears from allocation and
// catalog listings but remains joinable from historical records.
func (s *CatalogService) DeleteBatch(ctx context.Context, id int64) error {
	return s.batchRepo.SoftDelete(ctx, id)
}

// ListAll lists the full active catalog
func (s *CatalogService) ListAll(ctx context.Context) ([]*repository.Batch, error) {
	return s.batchRepo.ListAll(ctx)
}

// ListBatches lists an item's active batches in FEFO order
func (s *CatalogService) ListBatches(ctx context.Context, name string) ([]*repository.Batch, error) {
	return s.batchRepo.ListByName(ctx, name)
}

// Candidates returns the FEFO-ordered batches with stock available for an
// item, for selection during visit entry.
func (s *CatalogService) Candidates(ctx context.Context, name string) ([]*repository.Batch, error) {
	return s.batchRepo.Candidates(ctx, name)
}

// AvailableQuantity is a point-in-time stock read. It takes no lock and
// is not a reservation; the commit path re-checks under lock.
func (s *CatalogService) AvailableQuantity(ctx context.Context, batchID int64) (int, error) {
	return s.batchRepo.AvailableQuantity(ctx, batchID)
}

// ListLowStock lists batches at or below their reorder level, per batch
func (s *CatalogService) ListLowStock(ctx context.Context) ([]*repository.Batch, error) {
	return s.batchRepo.ListLowStock(ctx)
}

// ListLowStockByItem lists the per-item aggregate low-stock view
func (s *CatalogService) ListLowStockByItem(ctx context.Context) ([]*repository.ItemStock, error) {
	return s.batchRepo.ListLowStockByItem(ctx)
}
