// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

// Service handles stock record lifecycle and queries. All quantity mutations
// on existing records go through the Ledger.
type Service struct {
	ds     Datastore
	ledger *Ledger
	logger *logrus.Logger
}

// NewService creates a new inventory service.
func NewService(ds Datastore, ledger *Ledger, logger *logrus.Logger) *Service {
	return &Service{
		ds:     ds,
		ledger: ledger,
		logger: logger,
	}
}

// CreateStockRecordRequest represents the first stock receipt for a location.
type CreateStockRecordRequest struct {
	ProductID          uuid.UUID       `json:"product_id" binding:"required"`
	ProductVariationID *uuid.UUID      `json:"product_variation_id,omitempty"`
	BranchID           uuid.UUID       `json:"branch_id" binding:"required"`
	WarehouseID        *uuid.UUID      `json:"warehouse_id,omitempty"`
	Quantity           int             `json:"quantity" binding:"required,gte=0"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	Reason             string          `json:"reason,omitempty"`
	ActorID            uuid.UUID       `json:"-"`
}

// CreateStockRecord creates a stock record for a product/location pair and
// logs the opening quantity as an IN entry.
func (s *Service) CreateStockRecord(ctx context.Context, req *CreateStockRecordRequest) (*StockRecord, error) {
	if req.Quantity < 0 {
		return nil, apperrors.Validationf("opening quantity cannot be negative, got %d", req.Quantity)
	}
	if req.UnitCost.IsNegative() {
		return nil, apperrors.Validationf("unit cost cannot be negative")
	}

	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	key := LocationKey{
		ProductID:          req.ProductID,
		ProductVariationID: req.ProductVariationID,
		BranchID:           req.BranchID,
		WarehouseID:        req.WarehouseID,
	}
	if existing, err := tx.StockRecords().GetByLocation(ctx, key); err == nil && existing != nil {
		return nil, apperrors.Validationf("stock record already exists for this product and location")
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing stock record: %w", err)
	}

	now := time.Now().UTC()
	record := &StockRecord{
		ID:                 uuid.New(),
		ProductID:          req.ProductID,
		ProductVariationID: req.ProductVariationID,
		BranchID:           req.BranchID,
		WarehouseID:        req.WarehouseID,
		Quantity:           req.Quantity,
		ReservedQuantity:   0,
		UnitCost:           req.UnitCost,
		CreatedAt:          now,
	}
	record.recompute(now)

	if err := tx.StockRecords().Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create stock record: %w", err)
	}

	entry := s.ledger.newEntry(record, TransactionTypeIn, req.Quantity,
		req.UnitCost, orReference("", "INV"), req.Reason, req.ActorID)
	if err := tx.TransactionLog().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append opening entry: %w", err)
	}

	if err := commitTx(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"stock_record_id": record.ID,
		"product_id":      req.ProductID,
		"branch_id":       req.BranchID,
		"quantity":        req.Quantity,
	}).Info("Stock record created")

	return record, nil
}

// GetStockRecord retrieves a stock record by id.
func (s *Service) GetStockRecord(ctx context.Context, id uuid.UUID) (*StockRecord, error) {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	return tx.StockRecords().Get(ctx, id)
}

// GetStockRecordByLocation retrieves the record for a product/location pair.
func (s *Service) GetStockRecordByLocation(ctx context.Context, key LocationKey) (*StockRecord, error) {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	return tx.StockRecords().GetByLocation(ctx, key)
}

// ListByBranch lists all stock records held at a branch.
func (s *Service) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]StockRecord, error) {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	return tx.StockRecords().ListByBranch(ctx, branchID)
}

// ListByProduct lists stock records for a product across all locations.
func (s *Service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]StockRecord, error) {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	return tx.StockRecords().ListByProduct(ctx, productID)
}

// ListLowStock lists branch records whose available quantity is at or below
// the threshold.
func (s *Service) ListLowStock(ctx context.Context, branchID uuid.UUID, threshold int) ([]StockRecord, error) {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	return tx.StockRecords().ListLowStock(ctx, branchID, threshold)
}

// DeleteStockRecord retires a record. Deletion is logical and is logged as a
// full withdrawal so the audit trail still reconciles to zero.
func (s *Service) DeleteStockRecord(ctx context.Context, id uuid.UUID, reason string, actorID uuid.UUID) error {
	tx, err := s.ds.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	record, err := tx.StockRecords().Get(ctx, id)
	if err != nil {
		return err
	}
	if record.ReservedQuantity > 0 {
		return apperrors.Validationf("cannot delete stock record with %d units reserved", record.ReservedQuantity)
	}

	if record.Quantity > 0 {
		entry := s.ledger.newEntry(record, TransactionTypeOut, -record.Quantity,
			record.UnitCost, orReference("", "INV"), reason, actorID)
		if err := tx.TransactionLog().Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append withdrawal entry: %w", err)
		}
		version := record.Version
		record.Quantity = 0
		record.recompute(time.Now().UTC())
		if err := tx.StockRecords().Save(ctx, record, version); err != nil {
			return err
		}
	}

	if err := tx.StockRecords().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete stock record: %w", err)
	}

	if err := commitTx(ctx, tx); err != nil {
		return err
	}

	s.logger.WithField("stock_record_id", id).Info("Stock record retired")
	return nil
}
