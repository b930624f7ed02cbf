// internal/infrastructure/repository/memory/store.go
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/your-org/retail-pos-backend/internal/domain/customer"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
	"github.com/your-org/retail-pos-backend/internal/domain/product"
	"github.com/your-org/retail-pos-backend/internal/domain/sales"
)

// Store is an in-memory datastore with transactional semantics: writes are
// staged per unit of work and become visible at Commit. Stock record and
// loyalty account versions are validated at commit, so two units that read
// the same version cannot both win.
type Store struct {
	mu sync.Mutex

	stockRecords map[uuid.UUID]*inventory.StockRecord
	stockLog     []inventory.StockTransaction

	accounts       map[uuid.UUID]*loyalty.Account
	loyaltyEntries []loyalty.Entry

	transactions map[uuid.UUID]*sales.Transaction
	numbers      map[string]uuid.UUID

	products   map[uuid.UUID]*product.Product
	variations map[uuid.UUID]*product.ProductVariation
	customers  map[uuid.UUID]*customer.Customer

	// AppendLogHook, when set, runs before a stock log append and can force
	// a failure mid-unit. Used to exercise rollback paths.
	AppendLogHook func(entry *inventory.StockTransaction) error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		stockRecords: make(map[uuid.UUID]*inventory.StockRecord),
		accounts:     make(map[uuid.UUID]*loyalty.Account),
		transactions: make(map[uuid.UUID]*sales.Transaction),
		numbers:      make(map[string]uuid.UUID),
		products:     make(map[uuid.UUID]*product.Product),
		variations:   make(map[uuid.UUID]*product.ProductVariation),
		customers:    make(map[uuid.UUID]*customer.Customer),
	}
}

// Begin opens a unit of work.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		store:          s,
		records:        make(map[uuid.UUID]*inventory.StockRecord),
		baseVersions:   make(map[uuid.UUID]int64),
		written:        make(map[uuid.UUID]bool),
		created:        make(map[uuid.UUID]bool),
		deleted:        make(map[uuid.UUID]bool),
		accounts:       make(map[uuid.UUID]*loyalty.Account),
		accountBase:    make(map[uuid.UUID]int64),
		accountWritten: make(map[uuid.UUID]bool),
		accountCreated: make(map[uuid.UUID]bool),
		transactions:   make(map[uuid.UUID]*sales.Transaction),
		newNumbers:     make(map[string]uuid.UUID),
		products:       make(map[uuid.UUID]*product.Product),
		customers:      make(map[uuid.UUID]*customer.Customer),
	}, nil
}

// Inventory adapts the store to the inventory package's contract.
func (s *Store) Inventory() inventory.Datastore { return inventoryDS{s} }

// Loyalty adapts the store to the loyalty package's contract.
func (s *Store) Loyalty() loyalty.Datastore { return loyaltyDS{s} }

// Sales adapts the store to the sales package's contract.
func (s *Store) Sales() sales.Datastore { return salesDS{s} }

type inventoryDS struct{ s *Store }

func (a inventoryDS) Begin(ctx context.Context) (inventory.Tx, error) { return a.s.Begin(ctx) }

type loyaltyDS struct{ s *Store }

func (a loyaltyDS) Begin(ctx context.Context) (loyalty.Tx, error) { return a.s.Begin(ctx) }

type salesDS struct{ s *Store }

func (a salesDS) Begin(ctx context.Context) (sales.Tx, error) { return a.s.Begin(ctx) }

// Seed helpers populate committed state directly, bypassing staging. For
// test setup only.

func (s *Store) SeedStockRecord(record *inventory.StockRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stockRecords[record.ID] = copyRecord(record)
}

func (s *Store) SeedProduct(p *product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
}

func (s *Store) SeedVariation(v *product.ProductVariation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.variations[v.ID] = &cp
}

func (s *Store) SeedCustomer(c *customer.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.customers[c.ID] = &cp
}

func (s *Store) SeedAccount(a *loyalty.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.ID] = &cp
}

// CommittedStockRecord reads committed state, ignoring any open units.
func (s *Store) CommittedStockRecord(id uuid.UUID) *inventory.StockRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.stockRecords[id]
	if !ok {
		return nil
	}
	return copyRecord(record)
}

// CommittedLog returns every committed stock log entry in append order.
func (s *Store) CommittedLog() []inventory.StockTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]inventory.StockTransaction, len(s.stockLog))
	copy(out, s.stockLog)
	return out
}

func copyRecord(r *inventory.StockRecord) *inventory.StockRecord {
	cp := *r
	return &cp
}

func copyTransaction(t *sales.Transaction) *sales.Transaction {
	cp := *t
	cp.Items = make([]sales.TransactionItem, len(t.Items))
	copy(cp.Items, t.Items)
	cp.Payments = make([]sales.TransactionPayment, len(t.Payments))
	copy(cp.Payments, t.Payments)
	return &cp
}
