// internal/domain/inventory/store.go
package inventory

import (
	"context"

	"github.com/google/uuid"
)

// StockRecordStore is the persistence contract for stock records. Save is
// conditional on the version the caller read; a mismatch surfaces
// apperrors.ErrConcurrencyConflict either at Save or at Commit, depending on
// the implementation.
type StockRecordStore interface {
	Get(ctx context.Context, id uuid.UUID) (*StockRecord, error)
	GetByLocation(ctx context.Context, key LocationKey) (*StockRecord, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]StockRecord, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]StockRecord, error)
	ListLowStock(ctx context.Context, branchID uuid.UUID, threshold int) ([]StockRecord, error)
	Create(ctx context.Context, record *StockRecord) error
	Save(ctx context.Context, record *StockRecord, expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionLogStore is the append-only audit log contract.
type TransactionLogStore interface {
	Append(ctx context.Context, entry *StockTransaction) error
	ListByStockRecord(ctx context.Context, stockRecordID uuid.UUID) ([]StockTransaction, error)
	ListByReference(ctx context.Context, referenceNumber string) ([]StockTransaction, error)
}

// Tx is one atomic unit of work over stock state. A record write and its log
// entry are only ever visible together: both happen inside a Tx and become
// observable at Commit.
type Tx interface {
	Commit() error
	Rollback() error
	StockRecords() StockRecordStore
	TransactionLog() TransactionLogStore
}

// Datastore opens units of work for the inventory ledger.
type Datastore interface {
	Begin(ctx context.Context) (Tx, error)
}
