// internal/infrastructure/repository/catalog.go
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/your-org/retail-pos-backend/internal/domain/customer"
	"github.com/your-org/retail-pos-backend/internal/domain/product"
	"gorm.io/gorm"
)

type productStore struct {
	db *gorm.DB
}

func (s *productStore) Get(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	var p product.Product
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *productStore) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	var p product.Product
	err := s.db.WithContext(ctx).
		First(&p, "sku = ?", strings.ToUpper(strings.TrimSpace(sku))).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *productStore) GetVariation(ctx context.Context, id uuid.UUID) (*product.ProductVariation, error) {
	var v product.ProductVariation
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (s *productStore) Create(ctx context.Context, p *product.Product) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (s *productStore) Update(ctx context.Context, p *product.Product) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

type customerStore struct {
	db *gorm.DB
}

func (s *customerStore) Get(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	var c customer.Customer
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *customerStore) GetByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	var c customer.Customer
	if err := s.db.WithContext(ctx).First(&c, "phone_number = ?", phone).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *customerStore) Create(ctx context.Context, c *customer.Customer) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (s *customerStore) Update(ctx context.Context, c *customer.Customer) error {
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}
