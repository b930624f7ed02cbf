// internal/domain/loyalty/store.go
package loyalty

import (
	"context"

	"github.com/google/uuid"
)

// AccountStore persists loyalty accounts and their point ledger. Save is
// conditional on the version the caller read, mirroring the stock record
// contract, so two concurrent redemptions cannot both spend the same
// balance.
type AccountStore interface {
	Get(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByCustomer(ctx context.Context, customerID uuid.UUID) (*Account, error)
	Create(ctx context.Context, account *Account) error
	Save(ctx context.Context, account *Account, expectedVersion int64) error
	AppendEntry(ctx context.Context, entry *Entry) error
	ListEntries(ctx context.Context, accountID uuid.UUID) ([]Entry, error)
}

// Tx is an open unit of work scoped to loyalty data.
type Tx interface {
	Commit() error
	Rollback() error
	LoyaltyAccounts() AccountStore
}

// Datastore opens loyalty units of work.
type Datastore interface {
	Begin(ctx context.Context) (Tx, error)
}
