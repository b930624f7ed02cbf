// internal/domain/inventory/transfer_test.go
package inventory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/infrastructure/repository/memory"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

func newCoordinator(t *testing.T) (*inventory.TransferCoordinator, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	ledger := inventory.NewLedger(store.Inventory(), testLogger(), 3)
	return inventory.NewTransferCoordinator(store.Inventory(), ledger, testLogger(), 3), store
}

func TestTransferConservesStock(t *testing.T) {
	coordinator, store := newCoordinator(t)
	source := seedRecord(store, 10)
	destBranch := uuid.New()

	result, err := coordinator.Transfer(context.Background(), &inventory.TransferRequest{
		FromStockRecordID: source.ID,
		ToBranchID:        destBranch,
		Quantity:          4,
		ActorID:           uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.TransferredQuantity)
	assert.True(t, result.TransferredValue.Equal(decimal.NewFromInt(20)),
		"expected value 20, got %s", result.TransferredValue)

	from := store.CommittedStockRecord(source.ID)
	to := store.CommittedStockRecord(result.ToStockRecordID)
	require.NotNil(t, to)
	assert.Equal(t, 6, from.Quantity)
	assert.Equal(t, 4, to.Quantity)
	assert.Equal(t, 10, from.Quantity+to.Quantity)
	assert.Equal(t, source.ProductID, to.ProductID)
	assert.Equal(t, destBranch, to.BranchID)
}

func TestTransferEntriesSharePairedReference(t *testing.T) {
	coordinator, store := newCoordinator(t)
	source := seedRecord(store, 10)

	result, err := coordinator.Transfer(context.Background(), &inventory.TransferRequest{
		FromStockRecordID: source.ID,
		ToBranchID:        uuid.New(),
		Quantity:          3,
		ActorID:           uuid.New(),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.ReferenceNumber, "TRF-"))
	assert.Equal(t, result.ReferenceNumber, result.FromEntry.ReferenceNumber)
	assert.Equal(t, result.ReferenceNumber, result.ToEntry.ReferenceNumber)
	assert.Equal(t, -3, result.FromEntry.QuantityDelta)
	assert.Equal(t, 3, result.ToEntry.QuantityDelta)
	assert.Equal(t, inventory.TransactionTypeTransfer, result.FromEntry.Type)
	assert.Equal(t, inventory.TransactionTypeTransfer, result.ToEntry.Type)

	log := store.CommittedLog()
	require.Len(t, log, 2)
}

func TestTransferToExistingDestination(t *testing.T) {
	coordinator, store := newCoordinator(t)
	source := seedRecord(store, 10)

	dest := &inventory.StockRecord{
		ID:                uuid.New(),
		ProductID:         source.ProductID,
		BranchID:          uuid.New(),
		Quantity:          3,
		AvailableQuantity: 3,
		UnitCost:          decimal.NewFromInt(5),
	}
	store.SeedStockRecord(dest)

	result, err := coordinator.Transfer(context.Background(), &inventory.TransferRequest{
		FromStockRecordID: source.ID,
		ToBranchID:        dest.BranchID,
		Quantity:          4,
		ActorID:           uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, dest.ID, result.ToStockRecordID)
	committed := store.CommittedStockRecord(dest.ID)
	assert.Equal(t, 7, committed.Quantity)
}

func TestTransferSameLocationRejected(t *testing.T) {
	coordinator, store := newCoordinator(t)
	source := seedRecord(store, 10)

	_, err := coordinator.Transfer(context.Background(), &inventory.TransferRequest{
		FromStockRecordID: source.ID,
		ToBranchID:        source.BranchID,
		Quantity:          2,
		ActorID:           uuid.New(),
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTransferInsufficientStock(t *testing.T) {
	coordinator, store := newCoordinator(t)
	source := seedRecord(store, 3)

	_, err := coordinator.Transfer(context.Background(), &inventory.TransferRequest{
		FromStockRecordID: source.ID,
		ToBranchID:        uuid.New(),
		Quantity:          4,
		ActorID:           uuid.New(),
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	committed := store.CommittedStockRecord(source.ID)
	assert.Equal(t, 3, committed.Quantity)
	assert.Empty(t, store.CommittedLog())
}

func TestBulkTransferIsolatesFailures(t *testing.T) {
	coordinator, store := newCoordinator(t)
	first := seedRecord(store, 10)
	second := seedRecord(store, 1)
	actor := uuid.New()

	result, err := coordinator.BulkTransfer(context.Background(), []inventory.TransferRequest{
		{FromStockRecordID: first.ID, ToBranchID: uuid.New(), Quantity: 5, ActorID: actor},
		{FromStockRecordID: second.ID, ToBranchID: uuid.New(), Quantity: 5, ActorID: actor},
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.True(t, result.Items[0].Success)
	assert.False(t, result.Items[1].Success)
	assert.NotEmpty(t, result.Items[1].Message)
	assert.False(t, result.Success)
	assert.Equal(t, 5, result.TransferredQuantity)

	// the failed transfer must not have touched its source
	assert.Equal(t, 5, store.CommittedStockRecord(first.ID).Quantity)
	assert.Equal(t, 1, store.CommittedStockRecord(second.ID).Quantity)
}
