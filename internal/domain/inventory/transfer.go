// internal/domain/inventory/transfer.go
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

// TransferCoordinator orchestrates a paired debit/credit across two stock
// records as one atomic unit. No partial transfer is ever observable: both
// legs commit together or the work is rolled back.
type TransferCoordinator struct {
	ds              Datastore
	ledger          *Ledger
	logger          *logrus.Logger
	conflictRetries int
}

// NewTransferCoordinator creates a new transfer coordinator.
func NewTransferCoordinator(ds Datastore, ledger *Ledger, logger *logrus.Logger, conflictRetries int) *TransferCoordinator {
	if conflictRetries < 1 {
		conflictRetries = 1
	}
	return &TransferCoordinator{
		ds:              ds,
		ledger:          ledger,
		logger:          logger,
		conflictRetries: conflictRetries,
	}
}

// TransferRequest moves stock from a source record to a destination location.
type TransferRequest struct {
	FromStockRecordID uuid.UUID       `json:"from_stock_record_id" binding:"required"`
	ToBranchID        uuid.UUID       `json:"to_branch_id" binding:"required"`
	ToWarehouseID     *uuid.UUID      `json:"to_warehouse_id,omitempty"`
	Quantity          int             `json:"quantity" binding:"required,gt=0"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	Reason            string          `json:"reason,omitempty"`
	ActorID           uuid.UUID       `json:"-"`
}

// TransferResult reports a completed transfer: both log entries share one
// reference number.
type TransferResult struct {
	FromStockRecordID   uuid.UUID         `json:"from_stock_record_id"`
	ToStockRecordID     uuid.UUID         `json:"to_stock_record_id"`
	TransferredQuantity int               `json:"transferred_quantity"`
	TransferredValue    decimal.Decimal   `json:"transferred_value"`
	ReferenceNumber     string            `json:"reference_number"`
	FromEntry           *StockTransaction `json:"from_entry"`
	ToEntry             *StockTransaction `json:"to_entry"`
}

// BulkTransferItemResult reports the outcome for one request in a bulk batch.
type BulkTransferItemResult struct {
	Index   int             `json:"index"`
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Result  *TransferResult `json:"result,omitempty"`
}

// BulkTransferResult aggregates a batch. Failed items never roll back the
// unrelated successful ones.
type BulkTransferResult struct {
	Success             bool                     `json:"success"`
	TransferredQuantity int                      `json:"transferred_quantity"`
	TransferredValue    decimal.Decimal          `json:"transferred_value"`
	Items               []BulkTransferItemResult `json:"items"`
}

// Transfer debits the source and credits the destination (creating it on
// first receipt) inside a single unit of work.
func (c *TransferCoordinator) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validationf("transfer quantity must be positive, got %d", req.Quantity)
	}

	var lastErr error
	for attempt := 0; attempt < c.conflictRetries; attempt++ {
		result, err := c.transferOnce(ctx, req)
		if err != nil {
			if errors.Is(err, apperrors.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return result, nil
	}

	c.logger.WithField("from_stock_record_id", req.FromStockRecordID).
		Warn("Transfer exhausted conflict retries")
	return nil, lastErr
}

func (c *TransferCoordinator) transferOnce(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	tx, err := c.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	source, err := tx.StockRecords().Get(ctx, req.FromStockRecordID)
	if err != nil {
		return nil, err
	}
	if !source.CanFulfill(req.Quantity) {
		return nil, &apperrors.InsufficientStockError{
			StockRecordID: source.ID,
			Available:     source.AvailableQuantity,
			Requested:     req.Quantity,
		}
	}
	if source.BranchID == req.ToBranchID && equalID(source.WarehouseID, req.ToWarehouseID) {
		return nil, apperrors.Validationf("source and destination locations are the same")
	}

	unitCost := req.UnitCost
	if unitCost.IsZero() {
		unitCost = source.UnitCost
	}

	destination, err := c.findOrCreateDestination(ctx, tx, source, req, unitCost)
	if err != nil {
		return nil, err
	}

	reference := orReference("", "TRF")
	now := time.Now().UTC()

	// Debit leg.
	fromVersion := source.Version
	source.Quantity -= req.Quantity
	source.recompute(now)
	if err := tx.StockRecords().Save(ctx, source, fromVersion); err != nil {
		return nil, err
	}
	fromEntry := c.transferEntry(source, -req.Quantity, unitCost, reference, req, source, req.ActorID)
	if err := tx.TransactionLog().Append(ctx, fromEntry); err != nil {
		return nil, fmt.Errorf("failed to append transfer-out entry: %w", err)
	}

	// Credit leg. Any failure here rolls the debit back with the unit of
	// work, so the source is never left short.
	toVersion := destination.Version
	destination.Quantity += req.Quantity
	destination.recompute(now)
	if err := tx.StockRecords().Save(ctx, destination, toVersion); err != nil {
		return nil, err
	}
	toEntry := c.transferEntry(destination, req.Quantity, unitCost, reference, req, source, req.ActorID)
	if err := tx.TransactionLog().Append(ctx, toEntry); err != nil {
		return nil, fmt.Errorf("failed to append transfer-in entry: %w", err)
	}

	if err := commitTx(ctx, tx); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"from_stock_record_id": source.ID,
		"to_stock_record_id":   destination.ID,
		"quantity":             req.Quantity,
		"reference":            reference,
	}).Info("Stock transferred")

	return &TransferResult{
		FromStockRecordID:   source.ID,
		ToStockRecordID:     destination.ID,
		TransferredQuantity: req.Quantity,
		TransferredValue:    unitCost.Mul(decimal.NewFromInt(int64(req.Quantity))),
		ReferenceNumber:     reference,
		FromEntry:           fromEntry,
		ToEntry:             toEntry,
	}, nil
}

// BulkTransfer applies each request independently and reports per-item
// outcomes without undoing unrelated successes.
func (c *TransferCoordinator) BulkTransfer(ctx context.Context, requests []TransferRequest) (*BulkTransferResult, error) {
	if len(requests) == 0 {
		return nil, apperrors.Validationf("bulk transfer requires at least one item")
	}

	result := &BulkTransferResult{
		Success:          true,
		TransferredValue: decimal.Zero,
		Items:            make([]BulkTransferItemResult, 0, len(requests)),
	}

	for i := range requests {
		req := requests[i]
		item, err := c.Transfer(ctx, &req)
		if err != nil {
			result.Success = false
			result.Items = append(result.Items, BulkTransferItemResult{
				Index:   i,
				Success: false,
				Message: err.Error(),
			})
			continue
		}
		result.TransferredQuantity += item.TransferredQuantity
		result.TransferredValue = result.TransferredValue.Add(item.TransferredValue)
		result.Items = append(result.Items, BulkTransferItemResult{
			Index:   i,
			Success: true,
			Result:  item,
		})
	}

	return result, nil
}

func (c *TransferCoordinator) findOrCreateDestination(ctx context.Context, tx Tx,
	source *StockRecord, req *TransferRequest, unitCost decimal.Decimal) (*StockRecord, error) {

	key := LocationKey{
		ProductID:          source.ProductID,
		ProductVariationID: source.ProductVariationID,
		BranchID:           req.ToBranchID,
		WarehouseID:        req.ToWarehouseID,
	}
	destination, err := tx.StockRecords().GetByLocation(ctx, key)
	if err == nil {
		return destination, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve destination record: %w", err)
	}

	now := time.Now().UTC()
	destination = &StockRecord{
		ID:                 uuid.New(),
		ProductID:          source.ProductID,
		ProductVariationID: source.ProductVariationID,
		BranchID:           req.ToBranchID,
		WarehouseID:        req.ToWarehouseID,
		Quantity:           0,
		ReservedQuantity:   0,
		UnitCost:           unitCost,
		CreatedAt:          now,
	}
	destination.recompute(now)
	if err := tx.StockRecords().Create(ctx, destination); err != nil {
		return nil, fmt.Errorf("failed to create destination record: %w", err)
	}
	return destination, nil
}

func (c *TransferCoordinator) transferEntry(record *StockRecord, delta int, unitCost decimal.Decimal,
	reference string, req *TransferRequest, source *StockRecord, actorID uuid.UUID) *StockTransaction {

	entry := c.ledger.newEntry(record, TransactionTypeTransfer, delta, unitCost, reference, req.Reason, actorID)
	fromBranch := source.BranchID
	toBranch := req.ToBranchID
	entry.FromBranchID = &fromBranch
	entry.ToBranchID = &toBranch
	entry.FromWarehouseID = source.WarehouseID
	entry.ToWarehouseID = req.ToWarehouseID
	return entry
}
