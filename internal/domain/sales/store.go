// internal/domain/sales/store.go
package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/retail-pos-backend/internal/domain/customer"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
	"github.com/your-org/retail-pos-backend/internal/domain/product"
)

// ListFilter narrows a paged transaction listing.
type ListFilter struct {
	BranchID   *uuid.UUID
	CustomerID *uuid.UUID
	Type       TransactionType
	Status     TransactionStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	Limit      int
}

// TransactionStore persists transactions with their items and payments.
// Create enforces transaction number uniqueness.
type TransactionStore interface {
	Create(ctx context.Context, t *Transaction) error
	Update(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByNumber(ctx context.Context, number string) (*Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]Transaction, int64, error)
	AddItem(ctx context.Context, item *TransactionItem) error
	AddPayment(ctx context.Context, payment *TransactionPayment) error
}

// Tx is a unit of work spanning sales, inventory, and loyalty data. One
// concrete transaction backs all three views.
type Tx interface {
	inventory.Tx
	loyalty.Tx
	Transactions() TransactionStore
	Products() product.Store
	Customers() customer.Store
}

// Datastore opens sales units of work.
type Datastore interface {
	Begin(ctx context.Context) (Tx, error)
}
