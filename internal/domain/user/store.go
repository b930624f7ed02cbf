// internal/domain/user/store.go
package user

import (
	"context"

	"github.com/google/uuid"
)

// Store provides staff account lookups for authentication.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
}
