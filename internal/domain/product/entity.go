// internal/domain/product/entity.go
package product

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a sellable item in the catalog.
type Product struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description string          `json:"description,omitempty" gorm:"type:text"`
	SKU         string          `json:"sku" gorm:"size:100;uniqueIndex;not null"`
	Barcode     string          `json:"barcode,omitempty" gorm:"size:100;index"`
	BasePrice   decimal.Decimal `json:"base_price" gorm:"type:numeric(14,4);not null"`
	CostPrice   decimal.Decimal `json:"cost_price" gorm:"type:numeric(14,4)"`
	Brand       string          `json:"brand,omitempty" gorm:"size:100"`
	Season      string          `json:"season,omitempty" gorm:"size:50"`
	Material    string          `json:"material,omitempty" gorm:"size:100"`
	Color       string          `json:"color,omitempty" gorm:"size:50"`
	IsActive    bool            `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`

	Variations []ProductVariation `json:"variations,omitempty" gorm:"foreignKey:ProductID"`
}

// ProductVariation is a size/color variant of a product with its own SKU.
type ProductVariation struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	ProductID       uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	Size            string          `json:"size" gorm:"size:20"`
	Color           string          `json:"color" gorm:"size:50"`
	SKU             string          `json:"sku" gorm:"size:100;uniqueIndex;not null"`
	AdditionalPrice decimal.Decimal `json:"additional_price" gorm:"type:numeric(14,4)"`
	CostPrice       decimal.Decimal `json:"cost_price" gorm:"type:numeric(14,4)"`
	IsActive        bool            `json:"is_active" gorm:"default:true"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Product) TableName() string { return "products" }
func (ProductVariation) TableName() string { return "product_variations" }

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	return nil
}

func (v *ProductVariation) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.SKU = strings.ToUpper(strings.TrimSpace(v.SKU))
	return nil
}

// SellingPrice is the base price plus the variation surcharge, when any.
func (p *Product) SellingPrice(variation *ProductVariation) decimal.Decimal {
	if variation == nil {
		return p.BasePrice
	}
	return p.BasePrice.Add(variation.AdditionalPrice)
}
