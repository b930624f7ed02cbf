// internal/domain/inventory/ledger_test.go
package inventory_test

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/infrastructure/repository/memory"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newLedger(t *testing.T, retries int) (*inventory.Ledger, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return inventory.NewLedger(store.Inventory(), testLogger(), retries), store
}

func seedRecord(store *memory.Store, quantity int) *inventory.StockRecord {
	record := &inventory.StockRecord{
		ID:                uuid.New(),
		ProductID:         uuid.New(),
		BranchID:          uuid.New(),
		Quantity:          quantity,
		AvailableQuantity: quantity,
		UnitCost:          decimal.NewFromInt(5),
	}
	store.SeedStockRecord(record)
	return record
}

func TestReserveHoldsStock(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)

	entry, err := ledger.Reserve(context.Background(), &inventory.ReserveRequest{
		StockRecordID: record.ID,
		Quantity:      4,
		ActorID:       uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, inventory.TransactionTypeReservation, entry.Type)
	assert.Equal(t, -4, entry.QuantityDelta)

	committed := store.CommittedStockRecord(record.ID)
	assert.Equal(t, 10, committed.Quantity)
	assert.Equal(t, 4, committed.ReservedQuantity)
	assert.Equal(t, 6, committed.AvailableQuantity)
	assert.Equal(t, int64(1), committed.Version)
}

func TestReleaseReturnsHeldStock(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)
	ctx := context.Background()

	_, err := ledger.Reserve(ctx, &inventory.ReserveRequest{
		StockRecordID: record.ID, Quantity: 4, ActorID: uuid.New(),
	})
	require.NoError(t, err)

	entry, err := ledger.Release(ctx, &inventory.ReleaseRequest{
		StockRecordID: record.ID, Quantity: 4, ActorID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.TransactionTypeRelease, entry.Type)
	assert.Equal(t, 4, entry.QuantityDelta)

	committed := store.CommittedStockRecord(record.ID)
	assert.Equal(t, 0, committed.ReservedQuantity)
	assert.Equal(t, 10, committed.AvailableQuantity)
}

func TestReserveInsufficientStock(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)

	_, err := ledger.Reserve(context.Background(), &inventory.ReserveRequest{
		StockRecordID: record.ID, Quantity: 11, ActorID: uuid.New(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	var shortage *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, 10, shortage.Available)
	assert.Equal(t, 11, shortage.Requested)

	committed := store.CommittedStockRecord(record.ID)
	assert.Equal(t, 0, committed.ReservedQuantity)
	assert.Empty(t, store.CommittedLog())
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)

	_, err := ledger.Reserve(context.Background(), &inventory.ReserveRequest{
		StockRecordID: record.ID, Quantity: 0, ActorID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReleaseExceedingReservationRejected(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)
	ctx := context.Background()

	_, err := ledger.Reserve(ctx, &inventory.ReserveRequest{
		StockRecordID: record.ID, Quantity: 2, ActorID: uuid.New(),
	})
	require.NoError(t, err)

	_, err = ledger.Release(ctx, &inventory.ReleaseRequest{
		StockRecordID: record.ID, Quantity: 3, ActorID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRelease)
}

func TestDeductFromReservation(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)
	ctx := context.Background()

	_, err := ledger.Reserve(ctx, &inventory.ReserveRequest{
		StockRecordID: record.ID, Quantity: 4, ActorID: uuid.New(),
	})
	require.NoError(t, err)

	entry, err := ledger.Deduct(ctx, &inventory.DeductRequest{
		StockRecordID:   record.ID,
		Quantity:        3,
		FromReservation: true,
		ActorID:         uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.TransactionTypeOut, entry.Type)

	committed := store.CommittedStockRecord(record.ID)
	assert.Equal(t, 7, committed.Quantity)
	assert.Equal(t, 1, committed.ReservedQuantity)
	assert.Equal(t, 6, committed.AvailableQuantity)
}

func TestDeductRespectsReservations(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)
	ctx := context.Background()

	_, err := ledger.Reserve(ctx, &inventory.ReserveRequest{
		StockRecordID: record.ID, Quantity: 8, ActorID: uuid.New(),
	})
	require.NoError(t, err)

	// only 2 remain available for direct deduction
	_, err = ledger.Deduct(ctx, &inventory.DeductRequest{
		StockRecordID: record.ID, Quantity: 3, ActorID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
}

func TestRestoreAddsStockBack(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)
	ctx := context.Background()

	_, err := ledger.Deduct(ctx, &inventory.DeductRequest{
		StockRecordID: record.ID, Quantity: 5, ActorID: uuid.New(),
	})
	require.NoError(t, err)

	entry, err := ledger.Restore(ctx, &inventory.RestoreRequest{
		StockRecordID: record.ID, Quantity: 5, ActorID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.TransactionTypeIn, entry.Type)
	assert.Equal(t, 5, entry.QuantityDelta)

	committed := store.CommittedStockRecord(record.ID)
	assert.Equal(t, 10, committed.Quantity)
	assert.Equal(t, 10, committed.AvailableQuantity)
}

func TestSetQuantityRecordsDelta(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)

	entry, err := ledger.SetQuantity(context.Background(), &inventory.SetQuantityRequest{
		StockRecordID: record.ID,
		NewQuantity:   25,
		ActorID:       uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.TransactionTypeAdjustment, entry.Type)
	assert.Equal(t, 15, entry.QuantityDelta)

	committed := store.CommittedStockRecord(record.ID)
	assert.Equal(t, 25, committed.Quantity)
	assert.Equal(t, 25, committed.AvailableQuantity)
}

func TestSetQuantityBelowReservedRejected(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)
	ctx := context.Background()

	_, err := ledger.Reserve(ctx, &inventory.ReserveRequest{
		StockRecordID: record.ID, Quantity: 4, ActorID: uuid.New(),
	})
	require.NoError(t, err)

	_, err = ledger.SetQuantity(ctx, &inventory.SetQuantityRequest{
		StockRecordID: record.ID, NewQuantity: 3, ActorID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAdjustment)
}

func TestEveryMutationAppendsOneEntry(t *testing.T) {
	ledger, store := newLedger(t, 3)
	record := seedRecord(store, 10)
	ctx := context.Background()
	actor := uuid.New()

	_, err := ledger.Reserve(ctx, &inventory.ReserveRequest{StockRecordID: record.ID, Quantity: 2, ActorID: actor})
	require.NoError(t, err)
	_, err = ledger.Release(ctx, &inventory.ReleaseRequest{StockRecordID: record.ID, Quantity: 2, ActorID: actor})
	require.NoError(t, err)
	_, err = ledger.Deduct(ctx, &inventory.DeductRequest{StockRecordID: record.ID, Quantity: 1, ActorID: actor})
	require.NoError(t, err)
	_, err = ledger.Restore(ctx, &inventory.RestoreRequest{StockRecordID: record.ID, Quantity: 1, ActorID: actor})
	require.NoError(t, err)
	_, err = ledger.SetQuantity(ctx, &inventory.SetQuantityRequest{StockRecordID: record.ID, NewQuantity: 12, ActorID: actor})
	require.NoError(t, err)

	log := store.CommittedLog()
	require.Len(t, log, 5)
	for _, entry := range log {
		assert.Equal(t, record.ID, entry.StockRecordID)
		assert.NotEmpty(t, entry.ReferenceNumber)
		assert.Equal(t, actor, entry.CreatedByUserID)
	}

	history, err := ledger.History(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	ledger, store := newLedger(t, 100)
	record := seedRecord(store, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Reserve(ctx, &inventory.ReserveRequest{
				StockRecordID: record.ID, Quantity: 5, ActorID: uuid.New(),
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	committed := store.CommittedStockRecord(record.ID)
	assert.Equal(t, 50, committed.ReservedQuantity)
	assert.Equal(t, 0, committed.AvailableQuantity)

	// all stock is held, the next reservation must fail
	_, err := ledger.Reserve(ctx, &inventory.ReserveRequest{
		StockRecordID: record.ID, Quantity: 1, ActorID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
}

func TestReserveUnknownRecord(t *testing.T) {
	ledger, _ := newLedger(t, 3)

	_, err := ledger.Reserve(context.Background(), &inventory.ReserveRequest{
		StockRecordID: uuid.New(), Quantity: 1, ActorID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
