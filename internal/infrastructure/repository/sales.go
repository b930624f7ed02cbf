// internal/infrastructure/repository/sales.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/your-org/retail-pos-backend/internal/domain/sales"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

type salesTransactionStore struct {
	db *gorm.DB
}

func (s *salesTransactionStore) Create(ctx context.Context, t *sales.Transaction) error {
	// Items and payments are written separately; keep the insert to the row.
	err := s.db.WithContext(ctx).Omit("Items", "Payments").Create(t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateTransactionNumber
		}
		return fmt.Errorf("failed to create sales transaction: %w", err)
	}
	return nil
}

func (s *salesTransactionStore) Update(ctx context.Context, t *sales.Transaction) error {
	res := s.db.WithContext(ctx).
		Model(&sales.Transaction{}).
		Where("id = ?", t.ID).
		Select("status", "notes", "original_transaction_id", "completed_at", "updated_at").
		Updates(t)
	if res.Error != nil {
		return fmt.Errorf("failed to update sales transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *salesTransactionStore) Get(ctx context.Context, id uuid.UUID) (*sales.Transaction, error) {
	var t sales.Transaction
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&t, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *salesTransactionStore) GetByNumber(ctx context.Context, number string) (*sales.Transaction, error) {
	var t sales.Transaction
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		First(&t, "transaction_number = ?", number).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *salesTransactionStore) List(ctx context.Context, filter sales.ListFilter) ([]sales.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&sales.Transaction{})
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sales transactions: %w", err)
	}

	var transactions []sales.Transaction
	offset := (filter.Page - 1) * filter.Limit
	err := query.
		Preload("Items").
		Preload("Payments").
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sales transactions: %w", err)
	}
	return transactions, total, nil
}

func (s *salesTransactionStore) AddItem(ctx context.Context, item *sales.TransactionItem) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create transaction item: %w", err)
	}
	return nil
}

func (s *salesTransactionStore) AddPayment(ctx context.Context, payment *sales.TransactionPayment) error {
	if err := s.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create transaction payment: %w", err)
	}
	return nil
}
