// internal/domain/inventory/commit_test.go
package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

// fakeTx lets the commit helper be driven without a real datastore.
type fakeTx struct {
	onCommit   func()
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error {
	t.committed = true
	if t.onCommit != nil {
		t.onCommit()
	}
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

func (t *fakeTx) StockRecords() StockRecordStore { return nil }
func (t *fakeTx) TransactionLog() TransactionLogStore { return nil }

func TestCommitRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tx := &fakeTx{}
	err := commitTx(ctx, tx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestCommitCancellationAfterCommitIsTooLate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Cancellation lands while Commit is in flight. The write is durable by
	// then, so the caller gets the too-late sentinel, not a rollback.
	tx := &fakeTx{onCommit: cancel}
	err := commitTx(ctx, tx)
	require.ErrorIs(t, err, apperrors.ErrOperationCommitted)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}
