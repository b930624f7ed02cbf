// internal/domain/customer/store.go
package customer

import (
	"context"

	"github.com/google/uuid"
)

// Store provides customer lookups for sales and loyalty.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByPhone(ctx context.Context, phone string) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
}
