// internal/domain/sales/service_test.go
package sales_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/retail-pos-backend/internal/domain/customer"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
	"github.com/your-org/retail-pos-backend/internal/domain/product"
	"github.com/your-org/retail-pos-backend/internal/domain/sales"
	"github.com/your-org/retail-pos-backend/internal/infrastructure/repository/memory"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

type fixture struct {
	store    *memory.Store
	pipeline *sales.Pipeline
	loyalty  *loyalty.Service
	branchID uuid.UUID
	actorID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	ledger := inventory.NewLedger(store.Inventory(), logger, 3)
	loyaltySvc := loyalty.NewService(store.Loyalty(), logger)
	pipeline := sales.NewPipeline(store.Sales(), ledger, loyaltySvc, logger, decimal.NewFromInt(10), 3)

	return &fixture{
		store:    store,
		pipeline: pipeline,
		loyalty:  loyaltySvc,
		branchID: uuid.New(),
		actorID:  uuid.New(),
	}
}

// seedItem creates a product priced at 10 with a stock record at the fixture
// branch and returns both.
func (f *fixture) seedItem(quantity int) (*product.Product, *inventory.StockRecord) {
	prod := &product.Product{
		ID:        uuid.New(),
		Name:      "Denim Jacket",
		SKU:       "DJ-" + uuid.New().String()[:8],
		BasePrice: decimal.NewFromInt(10),
		CostPrice: decimal.NewFromInt(4),
		IsActive:  true,
	}
	f.store.SeedProduct(prod)

	record := &inventory.StockRecord{
		ID:                uuid.New(),
		ProductID:         prod.ID,
		BranchID:          f.branchID,
		Quantity:          quantity,
		AvailableQuantity: quantity,
		UnitCost:          decimal.NewFromInt(4),
	}
	f.store.SeedStockRecord(record)
	return prod, record
}

func (f *fixture) seedCustomer(t *testing.T, enroll bool) *customer.Customer {
	t.Helper()
	cust := &customer.Customer{
		ID:          uuid.New(),
		FirstName:   "Ada",
		LastName:    "Osei",
		PhoneNumber: "555-0100",
	}
	f.store.SeedCustomer(cust)
	if enroll {
		_, err := f.loyalty.Enroll(context.Background(), &loyalty.EnrollRequest{CustomerID: cust.ID})
		require.NoError(t, err)
	}
	return cust
}

func (f *fixture) saleRequest(prod *product.Product, record *inventory.StockRecord,
	quantity int, paid decimal.Decimal) *sales.ProcessSaleRequest {
	return &sales.ProcessSaleRequest{
		BranchID: f.branchID,
		Items: []sales.SaleItemRequest{{
			ProductID:     prod.ID,
			StockRecordID: record.ID,
			Quantity:      quantity,
		}},
		Payments: []sales.PaymentRequest{{
			PaymentMethod: "CASH",
			Amount:        paid,
		}},
		ActorID: f.actorID,
	}
}

func TestProcessSaleComputesTotals(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)

	txn, err := f.pipeline.ProcessSale(context.Background(),
		f.saleRequest(prod, record, 2, decimal.NewFromInt(25)))
	require.NoError(t, err)

	assert.Equal(t, sales.StatusCompleted, txn.Status)
	assert.Equal(t, sales.TransactionTypeSale, txn.Type)
	assert.True(t, strings.HasPrefix(txn.TransactionNumber, "TXN"))
	assert.True(t, txn.Subtotal.Equal(decimal.NewFromInt(20)), "subtotal %s", txn.Subtotal)
	assert.True(t, txn.TaxAmount.Equal(decimal.NewFromInt(2)), "tax %s", txn.TaxAmount)
	assert.True(t, txn.TotalAmount.Equal(decimal.NewFromInt(22)), "total %s", txn.TotalAmount)
	assert.True(t, txn.AmountPaid.Equal(decimal.NewFromInt(25)))
	assert.True(t, txn.ChangeGiven.Equal(decimal.NewFromInt(3)), "change %s", txn.ChangeGiven)
	require.NotNil(t, txn.CompletedAt)

	committed := f.store.CommittedStockRecord(record.ID)
	assert.Equal(t, 8, committed.Quantity)

	log := f.store.CommittedLog()
	require.Len(t, log, 1)
	assert.Equal(t, inventory.TransactionTypeOut, log[0].Type)
	assert.Equal(t, -2, log[0].QuantityDelta)
	assert.Equal(t, txn.TransactionNumber, log[0].ReferenceNumber)
}

func TestProcessSaleUnderpaymentGivesNoChange(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)

	// $20 tendered against a $22 total: the sale completes, the shortfall
	// stays visible on the transaction, and change is never negative.
	txn, err := f.pipeline.ProcessSale(context.Background(),
		f.saleRequest(prod, record, 2, decimal.NewFromInt(20)))
	require.NoError(t, err)

	assert.Equal(t, sales.StatusCompleted, txn.Status)
	assert.True(t, txn.TotalAmount.Equal(decimal.NewFromInt(22)), "total %s", txn.TotalAmount)
	assert.True(t, txn.AmountPaid.Equal(decimal.NewFromInt(20)), "paid %s", txn.AmountPaid)
	assert.True(t, txn.ChangeGiven.IsZero(), "change %s", txn.ChangeGiven)
	assert.Equal(t, 8, f.store.CommittedStockRecord(record.ID).Quantity)
}

func TestProcessSaleInsufficientStock(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(1)

	_, err := f.pipeline.ProcessSale(context.Background(),
		f.saleRequest(prod, record, 2, decimal.NewFromInt(100)))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
}

func TestProcessSaleUnknownCustomerRejected(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)

	req := f.saleRequest(prod, record, 1, decimal.NewFromInt(11))
	ghost := uuid.New()
	req.CustomerID = &ghost

	_, err := f.pipeline.ProcessSale(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProcessSaleFailureRollsBackStock(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)

	// fail the audit append during completion, after the pending
	// transaction is durable
	f.store.AppendLogHook = func(*inventory.StockTransaction) error {
		return errors.New("log write refused")
	}

	_, err := f.pipeline.ProcessSale(context.Background(),
		f.saleRequest(prod, record, 2, decimal.NewFromInt(25)))
	require.Error(t, err)

	// the deduction rolled back with its unit of work
	assert.Equal(t, 10, f.store.CommittedStockRecord(record.ID).Quantity)

	f.store.AppendLogHook = nil
	list, err := f.pipeline.ListTransactions(context.Background(), &sales.ListTransactionsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, sales.StatusFailed, list.Transactions[0].Status)
}

func TestProcessSaleRetriesTransientVersionConflict(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	ctx := context.Background()

	// Another writer bumps the record version while the first completion
	// attempt is in flight. That attempt conflicts at commit; the replay
	// reads the new version and completes the sale.
	var once sync.Once
	f.store.AppendLogHook = func(*inventory.StockTransaction) error {
		var hookErr error
		once.Do(func() {
			tx, err := f.store.Begin(ctx)
			if err != nil {
				hookErr = err
				return
			}
			rec, err := tx.StockRecords().Get(ctx, record.ID)
			if err != nil {
				hookErr = err
				return
			}
			if err := tx.StockRecords().Save(ctx, rec, rec.Version); err != nil {
				hookErr = err
				return
			}
			hookErr = tx.Commit()
		})
		return hookErr
	}

	txn, err := f.pipeline.ProcessSale(ctx,
		f.saleRequest(prod, record, 2, decimal.NewFromInt(25)))
	require.NoError(t, err)

	assert.Equal(t, sales.StatusCompleted, txn.Status)
	assert.Equal(t, 8, f.store.CommittedStockRecord(record.ID).Quantity)
}

func TestProcessSaleEarnsLoyaltyPoints(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	cust := f.seedCustomer(t, true)
	ctx := context.Background()

	req := f.saleRequest(prod, record, 2, decimal.NewFromInt(22))
	req.CustomerID = &cust.ID

	txn, err := f.pipeline.ProcessSale(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 22, txn.LoyaltyPointsEarned)

	account, err := f.loyalty.GetByCustomer(ctx, cust.ID)
	require.NoError(t, err)
	assert.Equal(t, 22, account.PointsBalance)
	assert.Equal(t, 22, account.TotalEarned)
}

func TestProcessReturnRestoresStockAndReversesPoints(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	cust := f.seedCustomer(t, true)
	ctx := context.Background()

	saleReq := f.saleRequest(prod, record, 2, decimal.NewFromInt(22))
	saleReq.CustomerID = &cust.ID
	saleTx, err := f.pipeline.ProcessSale(ctx, saleReq)
	require.NoError(t, err)
	require.Equal(t, 8, f.store.CommittedStockRecord(record.ID).Quantity)

	returnTx, err := f.pipeline.ProcessReturn(ctx, &sales.ProcessReturnRequest{
		OriginalTransactionNumber: saleTx.TransactionNumber,
		Items: []sales.ReturnItemRequest{{
			OriginalItemID: saleTx.Items[0].ID,
			Quantity:       2,
		}},
		Reason:  "defective",
		ActorID: f.actorID,
	})
	require.NoError(t, err)

	assert.Equal(t, sales.TransactionTypeReturn, returnTx.Type)
	assert.Equal(t, sales.StatusCompleted, returnTx.Status)
	require.NotNil(t, returnTx.OriginalTransactionID)
	assert.Equal(t, saleTx.ID, *returnTx.OriginalTransactionID)

	// refunds are negative
	assert.True(t, returnTx.TotalAmount.Equal(decimal.NewFromInt(-22)), "total %s", returnTx.TotalAmount)
	assert.True(t, returnTx.TaxAmount.Equal(decimal.NewFromInt(-2)), "tax %s", returnTx.TaxAmount)
	assert.True(t, returnTx.Subtotal.Equal(decimal.NewFromInt(-20)), "subtotal %s", returnTx.Subtotal)

	assert.Equal(t, 10, f.store.CommittedStockRecord(record.ID).Quantity)

	account, err := f.loyalty.GetByCustomer(ctx, cust.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, account.PointsBalance)
}

func TestPartialReturnProRatesDiscountAndTax(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	ctx := context.Background()

	saleReq := &sales.ProcessSaleRequest{
		BranchID: f.branchID,
		Items: []sales.SaleItemRequest{{
			ProductID:      prod.ID,
			StockRecordID:  record.ID,
			Quantity:       2,
			DiscountAmount: decimal.NewFromInt(4),
		}},
		Payments: []sales.PaymentRequest{{
			PaymentMethod: "CASH",
			Amount:        decimal.RequireFromString("17.6"),
		}},
		ActorID: f.actorID,
	}
	saleTx, err := f.pipeline.ProcessSale(ctx, saleReq)
	require.NoError(t, err)
	require.True(t, saleTx.TotalAmount.Equal(decimal.RequireFromString("17.6")),
		"total %s", saleTx.TotalAmount)

	returnTx, err := f.pipeline.ProcessReturn(ctx, &sales.ProcessReturnRequest{
		OriginalTransactionNumber: saleTx.TransactionNumber,
		Items: []sales.ReturnItemRequest{{
			OriginalItemID: saleTx.Items[0].ID,
			Quantity:       1,
		}},
		ActorID: f.actorID,
	})
	require.NoError(t, err)

	require.Len(t, returnTx.Items, 1)
	line := returnTx.Items[0]
	assert.True(t, line.DiscountAmount.Equal(decimal.NewFromInt(2)), "discount %s", line.DiscountAmount)
	assert.True(t, line.TaxAmount.Equal(decimal.RequireFromString("0.8")), "tax %s", line.TaxAmount)
	assert.True(t, line.TotalPrice.Equal(decimal.RequireFromString("-8.8")), "line total %s", line.TotalPrice)
	assert.True(t, returnTx.TotalAmount.Equal(decimal.RequireFromString("-8.8")), "total %s", returnTx.TotalAmount)

	assert.Equal(t, 9, f.store.CommittedStockRecord(record.ID).Quantity)
}

func TestReturnQuantityBounded(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	ctx := context.Background()

	saleTx, err := f.pipeline.ProcessSale(ctx, f.saleRequest(prod, record, 2, decimal.NewFromInt(22)))
	require.NoError(t, err)

	_, err = f.pipeline.ProcessReturn(ctx, &sales.ProcessReturnRequest{
		OriginalTransactionNumber: saleTx.TransactionNumber,
		Items: []sales.ReturnItemRequest{{
			OriginalItemID: saleTx.Items[0].ID,
			Quantity:       3,
		}},
		ActorID: f.actorID,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 8, f.store.CommittedStockRecord(record.ID).Quantity)
}

func TestReturnOfReturnRejected(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	ctx := context.Background()

	saleTx, err := f.pipeline.ProcessSale(ctx, f.saleRequest(prod, record, 1, decimal.NewFromInt(11)))
	require.NoError(t, err)

	returnTx, err := f.pipeline.ProcessReturn(ctx, &sales.ProcessReturnRequest{
		OriginalTransactionNumber: saleTx.TransactionNumber,
		Items: []sales.ReturnItemRequest{{
			OriginalItemID: saleTx.Items[0].ID,
			Quantity:       1,
		}},
		ActorID: f.actorID,
	})
	require.NoError(t, err)

	_, err = f.pipeline.ProcessReturn(ctx, &sales.ProcessReturnRequest{
		OriginalTransactionNumber: returnTx.TransactionNumber,
		Items: []sales.ReturnItemRequest{{
			OriginalItemID: returnTx.Items[0].ID,
			Quantity:       1,
		}},
		ActorID: f.actorID,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProcessExchangeLinksLegs(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	replacement, replacementRecord := f.seedItem(5)
	ctx := context.Background()

	saleTx, err := f.pipeline.ProcessSale(ctx, f.saleRequest(prod, record, 1, decimal.NewFromInt(11)))
	require.NoError(t, err)

	result, err := f.pipeline.ProcessExchange(ctx, &sales.ProcessExchangeRequest{
		OriginalTransactionNumber: saleTx.TransactionNumber,
		ReturnItems: []sales.ReturnItemRequest{{
			OriginalItemID: saleTx.Items[0].ID,
			Quantity:       1,
		}},
		NewItems: []sales.SaleItemRequest{{
			ProductID:     replacement.ID,
			StockRecordID: replacementRecord.ID,
			Quantity:      1,
		}},
		Payments: []sales.PaymentRequest{{
			PaymentMethod: "CASH",
			Amount:        decimal.NewFromInt(11),
		}},
		Reason:  "wrong size",
		ActorID: f.actorID,
	})
	require.NoError(t, err)

	assert.Equal(t, sales.TransactionTypeReturn, result.ReturnTransaction.Type)
	assert.Equal(t, sales.TransactionTypeSale, result.SaleTransaction.Type)
	require.NotNil(t, result.SaleTransaction.OriginalTransactionID)
	assert.Equal(t, result.ReturnTransaction.ID, *result.SaleTransaction.OriginalTransactionID)

	// returned unit is back in stock, replacement unit left
	assert.Equal(t, 10, f.store.CommittedStockRecord(record.ID).Quantity)
	assert.Equal(t, 4, f.store.CommittedStockRecord(replacementRecord.ID).Quantity)
}

func TestExchangeSaleLegFailureKeepsReturn(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	replacement, replacementRecord := f.seedItem(0)
	ctx := context.Background()

	saleTx, err := f.pipeline.ProcessSale(ctx, f.saleRequest(prod, record, 1, decimal.NewFromInt(11)))
	require.NoError(t, err)

	_, err = f.pipeline.ProcessExchange(ctx, &sales.ProcessExchangeRequest{
		OriginalTransactionNumber: saleTx.TransactionNumber,
		ReturnItems: []sales.ReturnItemRequest{{
			OriginalItemID: saleTx.Items[0].ID,
			Quantity:       1,
		}},
		NewItems: []sales.SaleItemRequest{{
			ProductID:     replacement.ID,
			StockRecordID: replacementRecord.ID,
			Quantity:      1,
		}},
		Payments: []sales.PaymentRequest{{
			PaymentMethod: "CASH",
			Amount:        decimal.NewFromInt(11),
		}},
		ActorID: f.actorID,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	// the committed return leg stands
	assert.Equal(t, 10, f.store.CommittedStockRecord(record.ID).Quantity)
	list, err := f.pipeline.ListTransactions(ctx, &sales.ListTransactionsRequest{
		Type: sales.TransactionTypeReturn,
	})
	require.NoError(t, err)
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, sales.StatusCompleted, list.Transactions[0].Status)
}

func TestCancelPendingTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := &sales.Transaction{
		ID:                uuid.New(),
		TransactionNumber: "TXN202501010000001234",
		BranchID:          f.branchID,
		UserID:            f.actorID,
		Type:              sales.TransactionTypeSale,
		Status:            sales.StatusPending,
	}
	tx, err := f.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Transactions().Create(ctx, pending))
	require.NoError(t, tx.Commit())

	cancelled, err := f.pipeline.CancelTransaction(ctx, pending.ID, "customer walked away")
	require.NoError(t, err)
	assert.Equal(t, sales.StatusCancelled, cancelled.Status)
	assert.Equal(t, "customer walked away", cancelled.Notes)
}

func TestCancelCompletedTransactionRejected(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	ctx := context.Background()

	saleTx, err := f.pipeline.ProcessSale(ctx, f.saleRequest(prod, record, 1, decimal.NewFromInt(11)))
	require.NoError(t, err)

	_, err = f.pipeline.CancelTransaction(ctx, saleTx.ID, "too late")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTransactionNumbersAreUnique(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	ctx := context.Background()

	first, err := f.pipeline.ProcessSale(ctx, f.saleRequest(prod, record, 1, decimal.NewFromInt(11)))
	require.NoError(t, err)
	second, err := f.pipeline.ProcessSale(ctx, f.saleRequest(prod, record, 1, decimal.NewFromInt(11)))
	require.NoError(t, err)

	assert.NotEqual(t, first.TransactionNumber, second.TransactionNumber)

	found, err := f.pipeline.GetTransactionByNumber(ctx, first.TransactionNumber)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestListTransactionsFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	prod, record := f.seedItem(10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.pipeline.ProcessSale(ctx, f.saleRequest(prod, record, 1, decimal.NewFromInt(11)))
		require.NoError(t, err)
	}

	page, err := f.pipeline.ListTransactions(ctx, &sales.ListTransactionsRequest{Limit: 2, Page: 1})
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)
	assert.False(t, page.Pagination.HasPrev)

	page, err = f.pipeline.ListTransactions(ctx, &sales.ListTransactionsRequest{Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 1)
	assert.True(t, page.Pagination.HasPrev)

	other := uuid.New()
	filtered, err := f.pipeline.ListTransactions(ctx, &sales.ListTransactionsRequest{BranchID: &other})
	require.NoError(t, err)
	assert.Empty(t, filtered.Transactions)

	byStatus, err := f.pipeline.ListTransactions(ctx, &sales.ListTransactionsRequest{
		Status: sales.StatusCompleted,
	})
	require.NoError(t, err)
	assert.Len(t, byStatus.Transactions, 3)
}
