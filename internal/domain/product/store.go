// internal/domain/product/store.go
package product

import (
	"context"

	"github.com/google/uuid"
)

// Store provides catalog lookups for pricing and validation.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	GetVariation(ctx context.Context, id uuid.UUID) (*ProductVariation, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
}
