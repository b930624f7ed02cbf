// internal/pkg/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for expected business outcomes. Callers branch with
// errors.Is rather than matching message strings.
var (
	// ErrNotFound is returned when a stock record, transaction, customer or
	// loyalty account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned when a reservation, deduction or
	// transfer asks for more than the available quantity.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientPoints is returned when a redemption exceeds the
	// loyalty balance.
	ErrInsufficientPoints = errors.New("insufficient loyalty points")

	// ErrInvalidRelease is returned when releasing more than is reserved.
	ErrInvalidRelease = errors.New("release exceeds reserved quantity")

	// ErrInvalidAdjustment is returned when an adjustment would push
	// on-hand quantity below committed reservations.
	ErrInvalidAdjustment = errors.New("adjustment below reserved quantity")

	// ErrValidation is returned for malformed requests, unmatched
	// references and over-quantity returns.
	ErrValidation = errors.New("validation failed")

	// ErrConcurrencyConflict is returned when an optimistic version check
	// fails after the bounded retry budget is exhausted.
	ErrConcurrencyConflict = errors.New("concurrent modification detected")

	// ErrDuplicateTransactionNumber is returned when a transaction number
	// collides with an existing one.
	ErrDuplicateTransactionNumber = errors.New("duplicate transaction number")

	// ErrOperationCommitted is returned when cancellation arrives after the
	// unit of work has already committed.
	ErrOperationCommitted = errors.New("operation already committed")
)

// InsufficientStockError carries the shortage details for a stock record.
type InsufficientStockError struct {
	StockRecordID uuid.UUID
	Available     int
	Requested     int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for record %s: available %d, requested %d",
		e.StockRecordID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InsufficientPointsError carries the shortage details for a loyalty account.
type InsufficientPointsError struct {
	AccountID uuid.UUID
	Balance   int
	Requested int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points for account %s: balance %d, requested %d",
		e.AccountID, e.Balance, e.Requested)
}

func (e *InsufficientPointsError) Unwrap() error {
	return ErrInsufficientPoints
}

// ValidationError describes a rejected request field or reference.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validationf builds a ValidationError without a field name.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsClientError reports whether the error is an expected business outcome
// caused by the request, as opposed to an infrastructure fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrInvalidRelease) ||
		errors.Is(err, ErrInvalidAdjustment) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateTransactionNumber)
}

// IsRetryable reports whether the operation might succeed if replayed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
