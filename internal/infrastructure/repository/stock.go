// internal/infrastructure/repository/stock.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

type stockRecordStore struct {
	db *gorm.DB
}

func (s *stockRecordStore) Get(ctx context.Context, id uuid.UUID) (*inventory.StockRecord, error) {
	var record inventory.StockRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (s *stockRecordStore) GetByLocation(ctx context.Context, key inventory.LocationKey) (*inventory.StockRecord, error) {
	query := s.db.WithContext(ctx).
		Where("product_id = ? AND branch_id = ?", key.ProductID, key.BranchID)
	if key.ProductVariationID != nil {
		query = query.Where("product_variation_id = ?", *key.ProductVariationID)
	} else {
		query = query.Where("product_variation_id IS NULL")
	}
	if key.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *key.WarehouseID)
	} else {
		query = query.Where("warehouse_id IS NULL")
	}

	var record inventory.StockRecord
	if err := query.First(&record).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (s *stockRecordStore) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]inventory.StockRecord, error) {
	var records []inventory.StockRecord
	if err := s.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("created_at").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock records: %w", err)
	}
	return records, nil
}

func (s *stockRecordStore) ListByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockRecord, error) {
	var records []inventory.StockRecord
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock records: %w", err)
	}
	return records, nil
}

func (s *stockRecordStore) ListLowStock(ctx context.Context, branchID uuid.UUID, threshold int) ([]inventory.StockRecord, error) {
	var records []inventory.StockRecord
	if err := s.db.WithContext(ctx).
		Where("branch_id = ? AND available_quantity <= ?", branchID, threshold).
		Order("available_quantity").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list low stock records: %w", err)
	}
	return records, nil
}

func (s *stockRecordStore) Create(ctx context.Context, record *inventory.StockRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create stock record: %w", err)
	}
	return nil
}

// Save applies a conditional update keyed on the expected version. Zero rows
// affected means another writer got there first.
func (s *stockRecordStore) Save(ctx context.Context, record *inventory.StockRecord, expectedVersion int64) error {
	record.Version = expectedVersion + 1
	res := s.db.WithContext(ctx).
		Model(&inventory.StockRecord{}).
		Where("id = ? AND version = ?", record.ID, expectedVersion).
		Select("quantity", "reserved_quantity", "available_quantity", "unit_cost",
			"version", "last_updated").
		Updates(record)
	if res.Error != nil {
		return fmt.Errorf("failed to save stock record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		record.Version = expectedVersion
		return apperrors.ErrConcurrencyConflict
	}
	return nil
}

func (s *stockRecordStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&inventory.StockRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete stock record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

type transactionLogStore struct {
	db *gorm.DB
}

func (s *transactionLogStore) Append(ctx context.Context, entry *inventory.StockTransaction) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append stock transaction: %w", err)
	}
	return nil
}

func (s *transactionLogStore) ListByStockRecord(ctx context.Context, stockRecordID uuid.UUID) ([]inventory.StockTransaction, error) {
	var entries []inventory.StockTransaction
	if err := s.db.WithContext(ctx).
		Where("stock_record_id = ?", stockRecordID).
		Order("created_at").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock transactions: %w", err)
	}
	return entries, nil
}

func (s *transactionLogStore) ListByReference(ctx context.Context, reference string) ([]inventory.StockTransaction, error) {
	var entries []inventory.StockTransaction
	if err := s.db.WithContext(ctx).
		Where("reference_number = ?", reference).
		Order("created_at").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock transactions: %w", err)
	}
	return entries, nil
}
