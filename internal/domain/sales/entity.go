// internal/domain/sales/entity.go
package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType distinguishes money-in from money-out transactions.
type TransactionType string

const (
	TransactionTypeSale     TransactionType = "SALE"
	TransactionTypeReturn   TransactionType = "RETURN"
	TransactionTypeExchange TransactionType = "EXCHANGE"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusCancelled TransactionStatus = "CANCELLED"
	StatusFailed    TransactionStatus = "FAILED"
)

// Transaction is a sale, return, or exchange. Monetary fields are negative
// on returns. TransactionNumber is globally unique.
type Transaction struct {
	ID                    uuid.UUID         `json:"id" gorm:"type:uuid;primary_key"`
	TransactionNumber     string            `json:"transaction_number" gorm:"size:50;uniqueIndex;not null"`
	BranchID              uuid.UUID         `json:"branch_id" gorm:"type:uuid;not null;index"`
	CustomerID            *uuid.UUID        `json:"customer_id,omitempty" gorm:"type:uuid;index"`
	UserID                uuid.UUID         `json:"user_id" gorm:"type:uuid;not null"`
	Type                  TransactionType   `json:"type" gorm:"size:20;not null;index"`
	Status                TransactionStatus `json:"status" gorm:"size:20;not null;index"`
	OriginalTransactionID *uuid.UUID        `json:"original_transaction_id,omitempty" gorm:"type:uuid;index"`
	Subtotal              decimal.Decimal   `json:"subtotal" gorm:"type:numeric(14,4)"`
	TaxAmount             decimal.Decimal   `json:"tax_amount" gorm:"type:numeric(14,4)"`
	DiscountAmount        decimal.Decimal   `json:"discount_amount" gorm:"type:numeric(14,4)"`
	TotalAmount           decimal.Decimal   `json:"total_amount" gorm:"type:numeric(14,4)"`
	AmountPaid            decimal.Decimal   `json:"amount_paid" gorm:"type:numeric(14,4)"`
	ChangeGiven           decimal.Decimal   `json:"change_given" gorm:"type:numeric(14,4)"`
	LoyaltyPointsEarned   int               `json:"loyalty_points_earned" gorm:"default:0"`
	LoyaltyPointsRedeemed int               `json:"loyalty_points_redeemed" gorm:"default:0"`
	Notes                 string            `json:"notes,omitempty" gorm:"size:500"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	CompletedAt           *time.Time        `json:"completed_at,omitempty"`
	DeletedAt             gorm.DeletedAt    `json:"-" gorm:"index"`

	Items    []TransactionItem    `json:"items,omitempty" gorm:"foreignKey:TransactionID"`
	Payments []TransactionPayment `json:"payments,omitempty" gorm:"foreignKey:TransactionID"`
}

// TransactionItem is one line of a transaction. TotalPrice is negative on
// return lines.
type TransactionItem struct {
	ID                 uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	TransactionID      uuid.UUID       `json:"transaction_id" gorm:"type:uuid;not null;index"`
	ProductID          uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	ProductVariationID *uuid.UUID      `json:"product_variation_id,omitempty" gorm:"type:uuid"`
	StockRecordID      uuid.UUID       `json:"stock_record_id" gorm:"type:uuid;not null"`
	Quantity           int             `json:"quantity" gorm:"not null"`
	UnitPrice          decimal.Decimal `json:"unit_price" gorm:"type:numeric(14,4)"`
	DiscountAmount     decimal.Decimal `json:"discount_amount" gorm:"type:numeric(14,4)"`
	TaxAmount          decimal.Decimal `json:"tax_amount" gorm:"type:numeric(14,4)"`
	TotalPrice         decimal.Decimal `json:"total_price" gorm:"type:numeric(14,4)"`
	Notes              string          `json:"notes,omitempty" gorm:"size:255"`
	CreatedAt          time.Time       `json:"created_at"`
}

// TransactionPayment is one tender against a transaction. Refunds carry a
// negative amount.
type TransactionPayment struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	TransactionID   uuid.UUID       `json:"transaction_id" gorm:"type:uuid;not null;index"`
	PaymentMethod   string          `json:"payment_method" gorm:"size:50;not null"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(14,4);not null"`
	Currency        string          `json:"currency" gorm:"size:3;default:'USD'"`
	ReferenceNumber string          `json:"reference_number,omitempty" gorm:"size:100"`
	CardLastFour    string          `json:"card_last_four,omitempty" gorm:"size:4"`
	CardType        string          `json:"card_type,omitempty" gorm:"size:20"`
	GiftCardNumber  string          `json:"gift_card_number,omitempty" gorm:"size:50"`
	IsApproved      bool            `json:"is_approved" gorm:"default:true"`
	ProcessedAt     time.Time       `json:"processed_at"`
}

func (Transaction) TableName() string { return "sales_transactions" }
func (TransactionItem) TableName() string { return "sales_transaction_items" }
func (TransactionPayment) TableName() string { return "sales_transaction_payments" }

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// LineSubtotal is quantity times unit price before discount and tax.
func (i *TransactionItem) LineSubtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PriceAfterDiscount floors at zero so an over-discount never produces a
// negative taxable base.
func (i *TransactionItem) PriceAfterDiscount() decimal.Decimal {
	p := i.LineSubtotal().Sub(i.DiscountAmount)
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}
