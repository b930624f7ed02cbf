// internal/domain/customer/entity.go
package customer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer represents a store customer.
type Customer struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	FirstName   string         `json:"first_name" gorm:"size:100;not null"`
	LastName    string         `json:"last_name" gorm:"size:100;not null"`
	Email       string         `json:"email,omitempty" gorm:"size:255;index"`
	PhoneNumber string         `json:"phone_number,omitempty" gorm:"size:20;index"`
	DateOfBirth *time.Time     `json:"date_of_birth,omitempty"`
	Gender      string         `json:"gender,omitempty" gorm:"size:20"`
	AddressLine string         `json:"address_line,omitempty" gorm:"size:255"`
	City        string         `json:"city,omitempty" gorm:"size:100"`
	State       string         `json:"state,omitempty" gorm:"size:100"`
	PostalCode  string         `json:"postal_code,omitempty" gorm:"size:20"`
	Country     string         `json:"country,omitempty" gorm:"size:100"`
	EmailOptIn  bool           `json:"email_opt_in" gorm:"default:false"`
	SMSOptIn    bool           `json:"sms_opt_in" gorm:"default:false"`
	IsActive    bool           `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Customer) TableName() string { return "customers" }

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return nil
}

// FullName joins first and last name for receipts and lookups.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
