// internal/domain/inventory/ledger.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/retail-pos-backend/internal/pkg/apperrors"
)

// Ledger owns every mutation of a StockRecord. Each successful operation
// writes the record and appends exactly one StockTransaction inside the same
// unit of work; neither is ever visible without the other.
type Ledger struct {
	ds              Datastore
	logger          *logrus.Logger
	conflictRetries int
}

// NewLedger creates a new inventory ledger.
func NewLedger(ds Datastore, logger *logrus.Logger, conflictRetries int) *Ledger {
	if conflictRetries < 1 {
		conflictRetries = 1
	}
	return &Ledger{
		ds:              ds,
		logger:          logger,
		conflictRetries: conflictRetries,
	}
}

// ReserveRequest holds stock against a pending sale.
type ReserveRequest struct {
	StockRecordID uuid.UUID `json:"stock_record_id" binding:"required"`
	Quantity      int       `json:"quantity" binding:"required,gt=0"`
	Reference     string    `json:"reference,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	ActorID       uuid.UUID `json:"-"`
}

// ReleaseRequest returns previously reserved stock to the available pool.
type ReleaseRequest struct {
	StockRecordID uuid.UUID `json:"stock_record_id" binding:"required"`
	Quantity      int       `json:"quantity" binding:"required,gt=0"`
	Reference     string    `json:"reference,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	ActorID       uuid.UUID `json:"-"`
}

// DeductRequest removes stock on sale completion. FromReservation indicates
// the quantity was pre-reserved and the hold should be consumed along with
// the on-hand quantity.
type DeductRequest struct {
	StockRecordID   uuid.UUID       `json:"stock_record_id" binding:"required"`
	Quantity        int             `json:"quantity" binding:"required,gt=0"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	FromReservation bool            `json:"from_reservation"`
	Reference       string          `json:"reference,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	ActorID         uuid.UUID       `json:"-"`
}

// RestoreRequest puts stock back, used by returns and compensations.
type RestoreRequest struct {
	StockRecordID uuid.UUID       `json:"stock_record_id" binding:"required"`
	Quantity      int             `json:"quantity" binding:"required,gt=0"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Reference     string          `json:"reference,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	ActorID       uuid.UUID       `json:"-"`
}

// SetQuantityRequest adjusts on-hand quantity to an absolute count.
type SetQuantityRequest struct {
	StockRecordID uuid.UUID       `json:"stock_record_id" binding:"required"`
	NewQuantity   int             `json:"new_quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Reference     string          `json:"reference,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	ActorID       uuid.UUID       `json:"-"`
}

// Reserve holds stock in its own unit of work, retrying bounded times on
// version conflicts.
func (l *Ledger) Reserve(ctx context.Context, req *ReserveRequest) (*StockTransaction, error) {
	return l.withRetry(ctx, func(tx Tx) (*StockTransaction, error) {
		return l.ReserveTx(ctx, tx, req)
	})
}

// ReserveTx holds stock inside an already-open unit of work.
func (l *Ledger) ReserveTx(ctx context.Context, tx Tx, req *ReserveRequest) (*StockTransaction, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validationf("reservation quantity must be positive, got %d", req.Quantity)
	}

	record, err := tx.StockRecords().Get(ctx, req.StockRecordID)
	if err != nil {
		return nil, err
	}

	if !record.CanFulfill(req.Quantity) {
		return nil, &apperrors.InsufficientStockError{
			StockRecordID: record.ID,
			Available:     record.AvailableQuantity,
			Requested:     req.Quantity,
		}
	}

	version := record.Version
	record.ReservedQuantity += req.Quantity
	record.recompute(time.Now().UTC())

	if err := tx.StockRecords().Save(ctx, record, version); err != nil {
		return nil, err
	}

	entry := l.newEntry(record, TransactionTypeReservation, -req.Quantity,
		record.UnitCost, orReference(req.Reference, "RES"), req.Reason, req.ActorID)
	if err := tx.TransactionLog().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append reservation entry: %w", err)
	}

	return entry, nil
}

// Release returns reserved stock in its own unit of work.
func (l *Ledger) Release(ctx context.Context, req *ReleaseRequest) (*StockTransaction, error) {
	return l.withRetry(ctx, func(tx Tx) (*StockTransaction, error) {
		return l.ReleaseTx(ctx, tx, req)
	})
}

// ReleaseTx returns reserved stock inside an already-open unit of work.
func (l *Ledger) ReleaseTx(ctx context.Context, tx Tx, req *ReleaseRequest) (*StockTransaction, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validationf("release quantity must be positive, got %d", req.Quantity)
	}

	record, err := tx.StockRecords().Get(ctx, req.StockRecordID)
	if err != nil {
		return nil, err
	}

	if record.ReservedQuantity < req.Quantity {
		return nil, fmt.Errorf("record %s holds %d reserved, requested %d: %w",
			record.ID, record.ReservedQuantity, req.Quantity, apperrors.ErrInvalidRelease)
	}

	version := record.Version
	record.ReservedQuantity -= req.Quantity
	record.recompute(time.Now().UTC())

	if err := tx.StockRecords().Save(ctx, record, version); err != nil {
		return nil, err
	}

	entry := l.newEntry(record, TransactionTypeRelease, req.Quantity,
		record.UnitCost, orReference(req.Reference, "REL"), req.Reason, req.ActorID)
	if err := tx.TransactionLog().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append release entry: %w", err)
	}

	return entry, nil
}

// Deduct removes stock in its own unit of work.
func (l *Ledger) Deduct(ctx context.Context, req *DeductRequest) (*StockTransaction, error) {
	return l.withRetry(ctx, func(tx Tx) (*StockTransaction, error) {
		return l.DeductTx(ctx, tx, req)
	})
}

// DeductTx removes stock inside an already-open unit of work.
func (l *Ledger) DeductTx(ctx context.Context, tx Tx, req *DeductRequest) (*StockTransaction, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validationf("deduction quantity must be positive, got %d", req.Quantity)
	}

	record, err := tx.StockRecords().Get(ctx, req.StockRecordID)
	if err != nil {
		return nil, err
	}

	if req.FromReservation {
		if record.ReservedQuantity < req.Quantity {
			return nil, fmt.Errorf("record %s holds %d reserved, deducting %d: %w",
				record.ID, record.ReservedQuantity, req.Quantity, apperrors.ErrInvalidRelease)
		}
	} else if !record.CanFulfill(req.Quantity) {
		return nil, &apperrors.InsufficientStockError{
			StockRecordID: record.ID,
			Available:     record.AvailableQuantity,
			Requested:     req.Quantity,
		}
	}

	version := record.Version
	record.Quantity -= req.Quantity
	if req.FromReservation {
		record.ReservedQuantity -= req.Quantity
	}
	record.recompute(time.Now().UTC())

	if err := tx.StockRecords().Save(ctx, record, version); err != nil {
		return nil, err
	}

	unitCost := req.UnitCost
	if unitCost.IsZero() {
		unitCost = record.UnitCost
	}
	entry := l.newEntry(record, TransactionTypeOut, -req.Quantity,
		unitCost, orReference(req.Reference, "OUT"), req.Reason, req.ActorID)
	if err := tx.TransactionLog().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append deduction entry: %w", err)
	}

	return entry, nil
}

// Restore adds stock back in its own unit of work.
func (l *Ledger) Restore(ctx context.Context, req *RestoreRequest) (*StockTransaction, error) {
	return l.withRetry(ctx, func(tx Tx) (*StockTransaction, error) {
		return l.RestoreTx(ctx, tx, req)
	})
}

// RestoreTx adds stock back inside an already-open unit of work.
func (l *Ledger) RestoreTx(ctx context.Context, tx Tx, req *RestoreRequest) (*StockTransaction, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validationf("restore quantity must be positive, got %d", req.Quantity)
	}

	record, err := tx.StockRecords().Get(ctx, req.StockRecordID)
	if err != nil {
		return nil, err
	}

	version := record.Version
	record.Quantity += req.Quantity
	record.recompute(time.Now().UTC())

	if err := tx.StockRecords().Save(ctx, record, version); err != nil {
		return nil, err
	}

	unitCost := req.UnitCost
	if unitCost.IsZero() {
		unitCost = record.UnitCost
	}
	entry := l.newEntry(record, TransactionTypeIn, req.Quantity,
		unitCost, orReference(req.Reference, "IN"), req.Reason, req.ActorID)
	if err := tx.TransactionLog().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append restore entry: %w", err)
	}

	return entry, nil
}

// SetQuantity adjusts on-hand stock to an absolute count in its own unit of
// work. The new count may not go below committed reservations.
func (l *Ledger) SetQuantity(ctx context.Context, req *SetQuantityRequest) (*StockTransaction, error) {
	return l.withRetry(ctx, func(tx Tx) (*StockTransaction, error) {
		return l.SetQuantityTx(ctx, tx, req)
	})
}

// SetQuantityTx adjusts stock inside an already-open unit of work.
func (l *Ledger) SetQuantityTx(ctx context.Context, tx Tx, req *SetQuantityRequest) (*StockTransaction, error) {
	if req.NewQuantity < 0 {
		return nil, apperrors.Validationf("quantity cannot be negative, got %d", req.NewQuantity)
	}

	record, err := tx.StockRecords().Get(ctx, req.StockRecordID)
	if err != nil {
		return nil, err
	}

	if req.NewQuantity < record.ReservedQuantity {
		return nil, fmt.Errorf("new quantity %d is below %d reserved on record %s: %w",
			req.NewQuantity, record.ReservedQuantity, record.ID, apperrors.ErrInvalidAdjustment)
	}

	version := record.Version
	delta := req.NewQuantity - record.Quantity
	record.Quantity = req.NewQuantity
	if !req.UnitCost.IsZero() {
		record.UnitCost = req.UnitCost
	}
	record.recompute(time.Now().UTC())

	if err := tx.StockRecords().Save(ctx, record, version); err != nil {
		return nil, err
	}

	entry := l.newEntry(record, TransactionTypeAdjustment, delta,
		record.UnitCost, orReference(req.Reference, "ADJ"), req.Reason, req.ActorID)
	if err := tx.TransactionLog().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append adjustment entry: %w", err)
	}

	return entry, nil
}

// History returns the audit log for one stock record.
func (l *Ledger) History(ctx context.Context, stockRecordID uuid.UUID) ([]StockTransaction, error) {
	tx, err := l.ds.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unit of work: %w", err)
	}
	defer tx.Rollback()

	return tx.TransactionLog().ListByStockRecord(ctx, stockRecordID)
}

// withRetry runs op in a fresh unit of work, replaying it on optimistic
// version conflicts up to the configured budget. Business errors and context
// cancellation are surfaced immediately.
func (l *Ledger) withRetry(ctx context.Context, op func(tx Tx) (*StockTransaction, error)) (*StockTransaction, error) {
	var lastErr error
	for attempt := 0; attempt < l.conflictRetries; attempt++ {
		tx, err := l.ds.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin unit of work: %w", err)
		}

		entry, err := op(tx)
		if err != nil {
			_ = tx.Rollback()
			if errors.Is(err, apperrors.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		if err := commitTx(ctx, tx); err != nil {
			if errors.Is(err, apperrors.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			if errors.Is(err, apperrors.ErrOperationCommitted) {
				// The write is durable. The caller still learns that the
				// cancellation arrived too late to stop it.
				return entry, err
			}
			return nil, err
		}
		return entry, nil
	}

	l.logger.WithField("retries", l.conflictRetries).Warn("ledger operation exhausted conflict retries")
	return nil, lastErr
}

// commitTx commits the unit of work unless the caller has already cancelled.
// After a successful commit cancellation has no effect; callers observing a
// cancelled context past this point get apperrors.ErrOperationCommitted.
func commitTx(ctx context.Context, tx Tx) error {
	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return apperrors.ErrOperationCommitted
	}
	return nil
}

func (l *Ledger) newEntry(record *StockRecord, typ TransactionType, delta int,
	unitCost decimal.Decimal, reference, reason string, actorID uuid.UUID) *StockTransaction {
	return &StockTransaction{
		ID:              uuid.New(),
		StockRecordID:   record.ID,
		Type:            typ,
		QuantityDelta:   delta,
		UnitCost:        unitCost,
		ReferenceNumber: reference,
		Reason:          reason,
		CreatedByUserID: actorID,
		CreatedAt:       time.Now().UTC(),
	}
}

// orReference returns the caller-supplied correlation id, or generates one
// with the given prefix.
func orReference(reference, prefix string) string {
	if reference != "" {
		return reference
	}
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.New().String()[:8]))
}
