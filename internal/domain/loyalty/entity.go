// internal/domain/loyalty/entity.go
package loyalty

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntryType classifies a loyalty point movement.
type EntryType string

const (
	EntryTypeEarned   EntryType = "EARNED"
	EntryTypeRedeemed EntryType = "REDEEMED"
	EntryTypeReversed EntryType = "REVERSED"
)

// Tier names, ordered by lifetime points earned.
const (
	TierBronze   = "Bronze"
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
)

// Account is a customer's loyalty program membership. PointsBalance never
// goes negative.
type Account struct {
	ID               uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	CustomerID       uuid.UUID       `json:"customer_id" gorm:"type:uuid;uniqueIndex;not null"`
	CardNumber       string          `json:"card_number" gorm:"size:50;uniqueIndex;not null"`
	PointsBalance    int             `json:"points_balance" gorm:"not null;default:0"`
	TotalEarned      int             `json:"total_earned" gorm:"not null;default:0"`
	TotalRedeemed    int             `json:"total_redeemed" gorm:"not null;default:0"`
	Tier             string          `json:"tier" gorm:"size:50;default:'Bronze'"`
	TierDiscountPct  decimal.Decimal `json:"tier_discount_pct" gorm:"type:numeric(5,2);default:0"`
	Version          int64           `json:"version" gorm:"not null;default:0"`
	IsActive         bool            `json:"is_active" gorm:"default:true"`
	JoinedAt         time.Time       `json:"joined_at"`
	LastActivityAt   time.Time       `json:"last_activity_at"`
	LastUpgradeAt    *time.Time      `json:"last_upgrade_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `json:"-" gorm:"index"`
}

// Entry is one append-only point movement against an account.
type Entry struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	AccountID          uuid.UUID  `json:"account_id" gorm:"type:uuid;not null;index"`
	Points             int        `json:"points" gorm:"not null"`
	Type               EntryType  `json:"type" gorm:"size:20;not null"`
	Reason             string     `json:"reason,omitempty" gorm:"size:255"`
	SalesTransactionID *uuid.UUID `json:"sales_transaction_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt          time.Time  `json:"created_at"`
}

func (Account) TableName() string { return "loyalty_accounts" }
func (Entry) TableName() string { return "loyalty_entries" }

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// tierFor maps lifetime earned points onto a tier and its discount.
func tierFor(totalEarned int) (string, decimal.Decimal) {
	switch {
	case totalEarned >= 10000:
		return TierPlatinum, decimal.NewFromInt(15)
	case totalEarned >= 5000:
		return TierGold, decimal.NewFromInt(10)
	case totalEarned >= 1000:
		return TierSilver, decimal.NewFromInt(5)
	default:
		return TierBronze, decimal.Zero
	}
}
