// internal/infrastructure/repository/datastore.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/retail-pos-backend/internal/domain/customer"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
	"github.com/your-org/retail-pos-backend/internal/domain/product"
	"github.com/your-org/retail-pos-backend/internal/domain/sales"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Datastore opens gorm-backed units of work. One database transaction backs
// the inventory, loyalty, and sales views of a Tx.
type Datastore struct {
	db *gorm.DB
}

// NewDatastore creates a datastore on an open gorm connection.
func NewDatastore(db *gorm.DB) *Datastore {
	return &Datastore{db: db}
}

// Tx is a single database transaction exposed through the domain store
// interfaces.
type Tx struct {
	db *gorm.DB
}

// Begin opens a unit of work.
func (d *Datastore) Begin(ctx context.Context) (*Tx, error) {
	tx := d.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return &Tx{db: tx}, nil
}

func (t *Tx) Commit() error {
	if err := t.db.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *Tx) Rollback() error {
	err := t.db.Rollback().Error
	if err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
		return err
	}
	return nil
}

func (t *Tx) StockRecords() inventory.StockRecordStore { return &stockRecordStore{db: t.db} }
func (t *Tx) TransactionLog() inventory.TransactionLogStore { return &transactionLogStore{db: t.db} }
func (t *Tx) LoyaltyAccounts() loyalty.AccountStore { return &loyaltyAccountStore{db: t.db} }
func (t *Tx) Transactions() sales.TransactionStore { return &salesTransactionStore{db: t.db} }
func (t *Tx) Products() product.Store { return &productStore{db: t.db} }
func (t *Tx) Customers() customer.Store { return &customerStore{db: t.db} }

// ProductStore returns a non-transactional product store for read paths.
func (d *Datastore) ProductStore() product.Store { return &productStore{db: d.db} }

// CustomerStore returns a non-transactional customer store for read paths.
func (d *Datastore) CustomerStore() customer.Store { return &customerStore{db: d.db} }

// Inventory adapts the datastore to the inventory package's contract.
func (d *Datastore) Inventory() inventory.Datastore { return inventoryDS{d} }

// Loyalty adapts the datastore to the loyalty package's contract.
func (d *Datastore) Loyalty() loyalty.Datastore { return loyaltyDS{d} }

// Sales adapts the datastore to the sales package's contract.
func (d *Datastore) Sales() sales.Datastore { return salesDS{d} }

type inventoryDS struct{ d *Datastore }

func (a inventoryDS) Begin(ctx context.Context) (inventory.Tx, error) { return a.d.Begin(ctx) }

type loyaltyDS struct{ d *Datastore }

func (a loyaltyDS) Begin(ctx context.Context) (loyalty.Tx, error) { return a.d.Begin(ctx) }

type salesDS struct{ d *Datastore }

func (a salesDS) Begin(ctx context.Context) (sales.Tx, error) { return a.d.Begin(ctx) }

// translate maps gorm errors onto the domain error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return err
}
