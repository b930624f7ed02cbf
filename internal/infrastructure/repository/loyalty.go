// internal/infrastructure/repository/loyalty.go
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

type loyaltyAccountStore struct {
	db *gorm.DB
}

func (s *loyaltyAccountStore) Get(ctx context.Context, id uuid.UUID) (*loyalty.Account, error) {
	var account loyalty.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (s *loyaltyAccountStore) GetByCustomer(ctx context.Context, customerID uuid.UUID) (*loyalty.Account, error) {
	var account loyalty.Account
	if err := s.db.WithContext(ctx).First(&account, "customer_id = ?", customerID).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (s *loyaltyAccountStore) Create(ctx context.Context, account *loyalty.Account) error {
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create loyalty account: %w", err)
	}
	return nil
}

// Save applies a conditional update keyed on the expected version, the same
// contract the stock record store uses. Zero rows affected means another
// writer spent the balance first.
func (s *loyaltyAccountStore) Save(ctx context.Context, account *loyalty.Account, expectedVersion int64) error {
	account.Version = expectedVersion + 1
	res := s.db.WithContext(ctx).
		Model(&loyalty.Account{}).
		Where("id = ? AND version = ?", account.ID, expectedVersion).
		Select("points_balance", "total_earned", "total_redeemed", "tier", "tier_discount_pct",
			"version", "is_active", "last_activity_at", "last_upgrade_at", "updated_at").
		Updates(account)
	if res.Error != nil {
		return fmt.Errorf("failed to save loyalty account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		account.Version = expectedVersion
		return apperrors.ErrConcurrencyConflict
	}
	return nil
}

func (s *loyaltyAccountStore) AppendEntry(ctx context.Context, entry *loyalty.Entry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append loyalty entry: %w", err)
	}
	return nil
}

func (s *loyaltyAccountStore) ListEntries(ctx context.Context, accountID uuid.UUID) ([]loyalty.Entry, error) {
	var entries []loyalty.Entry
	if err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list loyalty entries: %w", err)
	}
	return entries, nil
}
