// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType represents the type of stock mutation
type TransactionType string

const (
	TransactionTypeIn          TransactionType = "IN"          // Receipt, return restock
	TransactionTypeOut         TransactionType = "OUT"         // Sale, withdrawal
	TransactionTypeReservation TransactionType = "RESERVATION" // Hold against pending sale
	TransactionTypeRelease     TransactionType = "RELEASE"     // Cancel a reservation
	TransactionTypeAdjustment  TransactionType = "ADJUSTMENT"  // Stock count correction
	TransactionTypeTransfer    TransactionType = "TRANSFER"    // Location-to-location movement leg
)

// Branch represents a retail branch location
type Branch struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Code      string         `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Address   string         `gorm:"type:text" json:"address"`
	City      string         `gorm:"size:50" json:"city"`
	Phone     string         `gorm:"size:20" json:"phone"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Warehouse represents an optional storage location attached to a branch
type Warehouse struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BranchID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"branch_id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Code      string         `gorm:"uniqueIndex;not null;size:20" json:"code"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// StockRecord represents on-hand stock for one product (or variation) at one location
type StockRecord struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_records_identity,unique" json:"product_id"`
	ProductVariationID *uuid.UUID      `gorm:"type:uuid;index:idx_stock_records_identity,unique" json:"product_variation_id,omitempty"`
	BranchID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_records_identity,unique" json:"branch_id"`
	WarehouseID        *uuid.UUID      `gorm:"type:uuid;index:idx_stock_records_identity,unique" json:"warehouse_id,omitempty"`
	Quantity           int             `gorm:"not null;default:0" json:"quantity"`
	ReservedQuantity   int             `gorm:"not null;default:0" json:"reserved_quantity"`
	AvailableQuantity  int             `gorm:"not null;default:0;index" json:"available_quantity"`
	UnitCost           decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"unit_cost"`
	Version            int64           `gorm:"not null;default:0" json:"version"`
	LastUpdated        time.Time       `json:"last_updated"`
	CreatedAt          time.Time       `json:"created_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Transactions []StockTransaction `gorm:"foreignKey:StockRecordID" json:"transactions,omitempty"`
}

// StockTransaction is the immutable audit record of one stock mutation.
// Rows are append-only: there is no update or delete path anywhere in the
// codebase, and corrections are made with compensating entries.
type StockTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	StockRecordID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"stock_record_id"`
	Type            TransactionType `gorm:"not null;size:20" json:"type"`
	QuantityDelta   int             `gorm:"not null" json:"quantity_delta"`
	UnitCost        decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"unit_cost"`
	ReferenceNumber string          `gorm:"not null;size:100;index" json:"reference_number"`
	Reason          string          `gorm:"type:text" json:"reason"`
	CreatedByUserID uuid.UUID       `gorm:"type:uuid;not null;index" json:"created_by_user_id"`
	FromBranchID    *uuid.UUID      `gorm:"type:uuid" json:"from_branch_id,omitempty"`
	ToBranchID      *uuid.UUID      `gorm:"type:uuid" json:"to_branch_id,omitempty"`
	FromWarehouseID *uuid.UUID      `gorm:"type:uuid" json:"from_warehouse_id,omitempty"`
	ToWarehouseID   *uuid.UUID      `gorm:"type:uuid" json:"to_warehouse_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// LocationKey identifies the (product, variation, branch, warehouse) tuple a
// StockRecord is keyed by.
type LocationKey struct {
	ProductID          uuid.UUID
	ProductVariationID *uuid.UUID
	BranchID           uuid.UUID
	WarehouseID        *uuid.UUID
}

// Matches compares two keys by value, treating nil variation and warehouse
// as distinct locations.
func (k LocationKey) Matches(other LocationKey) bool {
	return k.ProductID == other.ProductID &&
		k.BranchID == other.BranchID &&
		equalID(k.ProductVariationID, other.ProductVariationID) &&
		equalID(k.WarehouseID, other.WarehouseID)
}

func equalID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Key returns the record's location identity.
func (r *StockRecord) Key() LocationKey {
	return LocationKey{
		ProductID:          r.ProductID,
		ProductVariationID: r.ProductVariationID,
		BranchID:           r.BranchID,
		WarehouseID:        r.WarehouseID,
	}
}

// TableName overrides
func (Branch) TableName() string { return "branches" }
func (Warehouse) TableName() string { return "warehouses" }
func (StockRecord) TableName() string { return "stock_records" }
func (StockTransaction) TableName() string { return "stock_transactions" }

// recompute refreshes the derived available quantity and the update stamp.
// Every mutation path goes through this, so available == quantity - reserved
// holds after each write.
func (r *StockRecord) recompute(now time.Time) {
	r.AvailableQuantity = r.Quantity - r.ReservedQuantity
	r.LastUpdated = now
}

// BeforeCreate hook keeps the derived column consistent for records created
// outside the ledger (seeding, migrations).
func (r *StockRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.AvailableQuantity = r.Quantity - r.ReservedQuantity
	return nil
}

// CanFulfill checks whether the record can cover a requested quantity.
func (r *StockRecord) CanFulfill(quantity int) bool {
	return r.AvailableQuantity >= quantity
}

// IsLowStock checks if available stock is at or below the given threshold.
func (r *StockRecord) IsLowStock(threshold int) bool {
	return r.AvailableQuantity <= threshold
}
