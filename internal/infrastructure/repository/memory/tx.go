// internal/infrastructure/repository/memory/tx.go
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/retail-pos-backend/internal/domain/customer"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
	"github.com/your-org/retail-pos-backend/internal/domain/product"
	"github.com/your-org/retail-pos-backend/internal/domain/sales"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

var errTxClosed = errors.New("transaction already closed")

// Tx stages writes until Commit. Reads see committed state overlaid with the
// unit's own staged writes.
type Tx struct {
	store *Store
	done  bool

	records      map[uuid.UUID]*inventory.StockRecord
	baseVersions map[uuid.UUID]int64
	written      map[uuid.UUID]bool
	created      map[uuid.UUID]bool
	deleted      map[uuid.UUID]bool
	log          []inventory.StockTransaction

	accounts       map[uuid.UUID]*loyalty.Account
	accountBase    map[uuid.UUID]int64
	accountWritten map[uuid.UUID]bool
	accountCreated map[uuid.UUID]bool
	loyaltyEntries []loyalty.Entry

	transactions map[uuid.UUID]*sales.Transaction
	newNumbers   map[string]uuid.UUID

	products  map[uuid.UUID]*product.Product
	customers map[uuid.UUID]*customer.Customer
}

func (t *Tx) StockRecords() inventory.StockRecordStore { return (*stockRecords)(t) }
func (t *Tx) TransactionLog() inventory.TransactionLogStore { return (*transactionLog)(t) }
func (t *Tx) LoyaltyAccounts() loyalty.AccountStore { return (*loyaltyAccounts)(t) }
func (t *Tx) Transactions() sales.TransactionStore { return (*salesTransactions)(t) }
func (t *Tx) Products() product.Store { return (*productView)(t) }
func (t *Tx) Customers() customer.Store { return (*customerView)(t) }

// Commit validates staged stock and account writes against committed
// versions and applies everything atomically. A single stale record fails
// the whole unit.
func (t *Tx) Commit() error {
	if t.done {
		return errTxClosed
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range t.written {
		if t.created[id] {
			if _, exists := s.stockRecords[id]; exists {
				return apperrors.ErrConcurrencyConflict
			}
			continue
		}
		committed, exists := s.stockRecords[id]
		if !exists {
			return apperrors.ErrNotFound
		}
		if committed.Version != t.baseVersions[id] {
			return apperrors.ErrConcurrencyConflict
		}
	}
	for id := range t.accountWritten {
		if t.accountCreated[id] {
			if _, exists := s.accounts[id]; exists {
				return apperrors.ErrConcurrencyConflict
			}
			continue
		}
		committed, exists := s.accounts[id]
		if !exists {
			return apperrors.ErrNotFound
		}
		if committed.Version != t.accountBase[id] {
			return apperrors.ErrConcurrencyConflict
		}
	}
	for number, id := range t.newNumbers {
		if existing, taken := s.numbers[number]; taken && existing != id {
			return apperrors.ErrDuplicateTransactionNumber
		}
	}

	for id := range t.written {
		if t.deleted[id] {
			delete(s.stockRecords, id)
			continue
		}
		s.stockRecords[id] = copyRecord(t.records[id])
	}
	s.stockLog = append(s.stockLog, t.log...)

	for id := range t.accountWritten {
		cp := *t.accounts[id]
		s.accounts[id] = &cp
	}
	s.loyaltyEntries = append(s.loyaltyEntries, t.loyaltyEntries...)

	for id, transaction := range t.transactions {
		s.transactions[id] = copyTransaction(transaction)
	}
	for number, id := range t.newNumbers {
		s.numbers[number] = id
	}

	for id, p := range t.products {
		cp := *p
		s.products[id] = &cp
	}
	for id, c := range t.customers {
		cp := *c
		s.customers[id] = &cp
	}
	return nil
}

// Rollback discards staged writes. Calling it after Commit is a no-op so it
// can sit in a defer.
func (t *Tx) Rollback() error {
	t.done = true
	return nil
}

// stockRecords implements inventory.StockRecordStore over the staged view.
type stockRecords Tx

func (v *stockRecords) load(id uuid.UUID) (*inventory.StockRecord, bool) {
	t := (*Tx)(v)
	if t.deleted[id] {
		return nil, false
	}
	if staged, ok := t.records[id]; ok {
		return staged, true
	}
	t.store.mu.Lock()
	committed, ok := t.store.stockRecords[id]
	t.store.mu.Unlock()
	if !ok {
		return nil, false
	}
	staged := copyRecord(committed)
	t.records[id] = staged
	t.baseVersions[id] = committed.Version
	return staged, true
}

func (v *stockRecords) Get(ctx context.Context, id uuid.UUID) (*inventory.StockRecord, error) {
	record, ok := v.load(id)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyRecord(record), nil
}

func (v *stockRecords) GetByLocation(ctx context.Context, key inventory.LocationKey) (*inventory.StockRecord, error) {
	for _, record := range v.snapshot() {
		if record.Key().Matches(key) {
			return copyRecord(record), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (v *stockRecords) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]inventory.StockRecord, error) {
	var out []inventory.StockRecord
	for _, record := range v.snapshot() {
		if record.BranchID == branchID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (v *stockRecords) ListByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockRecord, error) {
	var out []inventory.StockRecord
	for _, record := range v.snapshot() {
		if record.ProductID == productID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (v *stockRecords) ListLowStock(ctx context.Context, branchID uuid.UUID, threshold int) ([]inventory.StockRecord, error) {
	var out []inventory.StockRecord
	for _, record := range v.snapshot() {
		if record.BranchID == branchID && record.AvailableQuantity <= threshold {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (v *stockRecords) Create(ctx context.Context, record *inventory.StockRecord) error {
	t := (*Tx)(v)
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	t.records[record.ID] = copyRecord(record)
	t.created[record.ID] = true
	t.written[record.ID] = true
	delete(t.deleted, record.ID)
	return nil
}

func (v *stockRecords) Save(ctx context.Context, record *inventory.StockRecord, expectedVersion int64) error {
	t := (*Tx)(v)
	current, ok := v.load(record.ID)
	if !ok {
		return apperrors.ErrNotFound
	}
	if current.Version != expectedVersion {
		return apperrors.ErrConcurrencyConflict
	}
	record.Version = expectedVersion + 1
	t.records[record.ID] = copyRecord(record)
	t.written[record.ID] = true
	return nil
}

func (v *stockRecords) Delete(ctx context.Context, id uuid.UUID) error {
	t := (*Tx)(v)
	if _, ok := v.load(id); !ok {
		return apperrors.ErrNotFound
	}
	t.deleted[id] = true
	t.written[id] = true
	return nil
}

// snapshot merges committed records with this unit's staged writes.
func (v *stockRecords) snapshot() map[uuid.UUID]*inventory.StockRecord {
	t := (*Tx)(v)
	merged := make(map[uuid.UUID]*inventory.StockRecord)
	t.store.mu.Lock()
	for id, record := range t.store.stockRecords {
		merged[id] = record
	}
	t.store.mu.Unlock()
	for id, record := range t.records {
		merged[id] = record
	}
	for id := range t.deleted {
		delete(merged, id)
	}
	return merged
}

// transactionLog implements inventory.TransactionLogStore.
type transactionLog Tx

func (v *transactionLog) Append(ctx context.Context, entry *inventory.StockTransaction) error {
	t := (*Tx)(v)
	if t.store.AppendLogHook != nil {
		if err := t.store.AppendLogHook(entry); err != nil {
			return err
		}
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	t.log = append(t.log, *entry)
	return nil
}

func (v *transactionLog) ListByStockRecord(ctx context.Context, stockRecordID uuid.UUID) ([]inventory.StockTransaction, error) {
	var out []inventory.StockTransaction
	for _, entry := range v.all() {
		if entry.StockRecordID == stockRecordID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (v *transactionLog) ListByReference(ctx context.Context, reference string) ([]inventory.StockTransaction, error) {
	var out []inventory.StockTransaction
	for _, entry := range v.all() {
		if entry.ReferenceNumber == reference {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (v *transactionLog) all() []inventory.StockTransaction {
	t := (*Tx)(v)
	t.store.mu.Lock()
	out := make([]inventory.StockTransaction, len(t.store.stockLog))
	copy(out, t.store.stockLog)
	t.store.mu.Unlock()
	return append(out, t.log...)
}

// loyaltyAccounts implements loyalty.AccountStore.
type loyaltyAccounts Tx

// load stages a committed account on first read and remembers the version it
// was read at, the same discipline the stock record view follows.
func (v *loyaltyAccounts) load(id uuid.UUID) (*loyalty.Account, bool) {
	t := (*Tx)(v)
	if staged, ok := t.accounts[id]; ok {
		return staged, true
	}
	t.store.mu.Lock()
	committed, ok := t.store.accounts[id]
	t.store.mu.Unlock()
	if !ok {
		return nil, false
	}
	cp := *committed
	t.accounts[id] = &cp
	t.accountBase[id] = committed.Version
	return &cp, true
}

func (v *loyaltyAccounts) Get(ctx context.Context, id uuid.UUID) (*loyalty.Account, error) {
	staged, ok := v.load(id)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *staged
	return &cp, nil
}

func (v *loyaltyAccounts) GetByCustomer(ctx context.Context, customerID uuid.UUID) (*loyalty.Account, error) {
	t := (*Tx)(v)
	for id, staged := range t.accounts {
		if staged.CustomerID == customerID {
			return v.Get(ctx, id)
		}
	}
	t.store.mu.Lock()
	var found uuid.UUID
	ok := false
	for id, committed := range t.store.accounts {
		if committed.CustomerID == customerID {
			found, ok = id, true
			break
		}
	}
	t.store.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return v.Get(ctx, found)
}

func (v *loyaltyAccounts) Create(ctx context.Context, account *loyalty.Account) error {
	t := (*Tx)(v)
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	cp := *account
	t.accounts[account.ID] = &cp
	t.accountCreated[account.ID] = true
	t.accountWritten[account.ID] = true
	return nil
}

func (v *loyaltyAccounts) Save(ctx context.Context, account *loyalty.Account, expectedVersion int64) error {
	t := (*Tx)(v)
	current, ok := v.load(account.ID)
	if !ok {
		return apperrors.ErrNotFound
	}
	if current.Version != expectedVersion {
		return apperrors.ErrConcurrencyConflict
	}
	account.Version = expectedVersion + 1
	cp := *account
	t.accounts[account.ID] = &cp
	t.accountWritten[account.ID] = true
	return nil
}

func (v *loyaltyAccounts) AppendEntry(ctx context.Context, entry *loyalty.Entry) error {
	t := (*Tx)(v)
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	t.loyaltyEntries = append(t.loyaltyEntries, *entry)
	return nil
}

func (v *loyaltyAccounts) ListEntries(ctx context.Context, accountID uuid.UUID) ([]loyalty.Entry, error) {
	t := (*Tx)(v)
	var out []loyalty.Entry
	t.store.mu.Lock()
	for _, entry := range t.store.loyaltyEntries {
		if entry.AccountID == accountID {
			out = append(out, entry)
		}
	}
	t.store.mu.Unlock()
	for _, entry := range t.loyaltyEntries {
		if entry.AccountID == accountID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// salesTransactions implements sales.TransactionStore.
type salesTransactions Tx

func (v *salesTransactions) load(id uuid.UUID) (*sales.Transaction, bool) {
	t := (*Tx)(v)
	if staged, ok := t.transactions[id]; ok {
		return staged, true
	}
	t.store.mu.Lock()
	committed, ok := t.store.transactions[id]
	t.store.mu.Unlock()
	if !ok {
		return nil, false
	}
	staged := copyTransaction(committed)
	t.transactions[id] = staged
	return staged, true
}

func (v *salesTransactions) Create(ctx context.Context, transaction *sales.Transaction) error {
	t := (*Tx)(v)
	t.store.mu.Lock()
	_, taken := t.store.numbers[transaction.TransactionNumber]
	t.store.mu.Unlock()
	if !taken {
		_, taken = t.newNumbers[transaction.TransactionNumber]
	}
	if taken {
		return apperrors.ErrDuplicateTransactionNumber
	}
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	staged := copyTransaction(transaction)
	staged.Items = nil
	staged.Payments = nil
	t.transactions[transaction.ID] = staged
	t.newNumbers[transaction.TransactionNumber] = transaction.ID
	return nil
}

func (v *salesTransactions) Update(ctx context.Context, transaction *sales.Transaction) error {
	staged, ok := v.load(transaction.ID)
	if !ok {
		return apperrors.ErrNotFound
	}
	staged.Status = transaction.Status
	staged.Notes = transaction.Notes
	staged.OriginalTransactionID = transaction.OriginalTransactionID
	staged.CompletedAt = transaction.CompletedAt
	staged.UpdatedAt = transaction.UpdatedAt
	return nil
}

func (v *salesTransactions) Get(ctx context.Context, id uuid.UUID) (*sales.Transaction, error) {
	staged, ok := v.load(id)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyTransaction(staged), nil
}

func (v *salesTransactions) GetByNumber(ctx context.Context, number string) (*sales.Transaction, error) {
	t := (*Tx)(v)
	if id, ok := t.newNumbers[number]; ok {
		return v.Get(ctx, id)
	}
	t.store.mu.Lock()
	id, ok := t.store.numbers[number]
	t.store.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return v.Get(ctx, id)
}

func (v *salesTransactions) List(ctx context.Context, filter sales.ListFilter) ([]sales.Transaction, int64, error) {
	t := (*Tx)(v)
	merged := make(map[uuid.UUID]*sales.Transaction)
	t.store.mu.Lock()
	for id, transaction := range t.store.transactions {
		merged[id] = transaction
	}
	t.store.mu.Unlock()
	for id, transaction := range t.transactions {
		merged[id] = transaction
	}

	var matched []sales.Transaction
	for _, transaction := range merged {
		if !matches(transaction, filter) {
			continue
		}
		matched = append(matched, *copyTransaction(transaction))
	}
	total := int64(len(matched))

	// Newest first, mirroring the SQL ordering.
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if matched[j].CreatedAt.After(matched[i].CreatedAt) {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}

	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (v *salesTransactions) AddItem(ctx context.Context, item *sales.TransactionItem) error {
	staged, ok := v.load(item.TransactionID)
	if !ok {
		return apperrors.ErrNotFound
	}
	staged.Items = append(staged.Items, *item)
	return nil
}

func (v *salesTransactions) AddPayment(ctx context.Context, payment *sales.TransactionPayment) error {
	staged, ok := v.load(payment.TransactionID)
	if !ok {
		return apperrors.ErrNotFound
	}
	staged.Payments = append(staged.Payments, *payment)
	return nil
}

func matches(t *sales.Transaction, filter sales.ListFilter) bool {
	if filter.BranchID != nil && t.BranchID != *filter.BranchID {
		return false
	}
	if filter.CustomerID != nil && (t.CustomerID == nil || *t.CustomerID != *filter.CustomerID) {
		return false
	}
	if filter.Type != "" && t.Type != filter.Type {
		return false
	}
	if filter.Status != "" && t.Status != filter.Status {
		return false
	}
	if filter.DateFrom != nil && t.CreatedAt.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && t.CreatedAt.After(*filter.DateTo) {
		return false
	}
	return true
}

// productView implements product.Store.
type productView Tx

func (v *productView) Get(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	t := (*Tx)(v)
	if staged, ok := t.products[id]; ok {
		cp := *staged
		return &cp, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if committed, ok := t.store.products[id]; ok {
		cp := *committed
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

func (v *productView) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	t := (*Tx)(v)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, p := range t.store.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (v *productView) GetVariation(ctx context.Context, id uuid.UUID) (*product.ProductVariation, error) {
	t := (*Tx)(v)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if variation, ok := t.store.variations[id]; ok {
		cp := *variation
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

func (v *productView) Create(ctx context.Context, p *product.Product) error {
	t := (*Tx)(v)
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	t.products[p.ID] = &cp
	return nil
}

func (v *productView) Update(ctx context.Context, p *product.Product) error {
	t := (*Tx)(v)
	cp := *p
	t.products[p.ID] = &cp
	return nil
}

// customerView implements customer.Store.
type customerView Tx

func (v *customerView) Get(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	t := (*Tx)(v)
	if staged, ok := t.customers[id]; ok {
		cp := *staged
		return &cp, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if committed, ok := t.store.customers[id]; ok {
		cp := *committed
		return &cp, nil
	}
	return nil, apperrors.ErrNotFound
}

func (v *customerView) GetByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	t := (*Tx)(v)
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, c := range t.store.customers {
		if c.PhoneNumber == phone {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (v *customerView) Create(ctx context.Context, c *customer.Customer) error {
	t := (*Tx)(v)
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	t.customers[c.ID] = &cp
	return nil
}

func (v *customerView) Update(ctx context.Context, c *customer.Customer) error {
	t := (*Tx)(v)
	cp := *c
	t.customers[c.ID] = &cp
	return nil
}
