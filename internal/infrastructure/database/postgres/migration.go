// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/retail-pos-backend/internal/domain/customer"
	"github.com/your-org/retail-pos-backend/internal/domain/inventory"
	"github.com/your-org/retail-pos-backend/internal/domain/loyalty"
	"github.com/your-org/retail-pos-backend/internal/domain/product"
	"github.com/your-org/retail-pos-backend/internal/domain/sales"
	"github.com/your-org/retail-pos-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("Running database auto-migrations...")

	// Dependency order: locations and catalog first, then stock, then sales.
	models := []interface{}{
		&user.User{},

		&inventory.Branch{},
		&inventory.Warehouse{},

		&product.Product{},
		&product.ProductVariation{},

		&customer.Customer{},
		&loyalty.Account{},
		&loyalty.Entry{},

		&inventory.StockRecord{},
		&inventory.StockTransaction{},

		&sales.Transaction{},
		&sales.TransactionItem{},
		&sales.TransactionPayment{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("Creating additional indexes...")

	indexes := []string{
		// Stock lookups
		"CREATE INDEX IF NOT EXISTS idx_stock_records_branch_available ON stock_records(branch_id, available_quantity)",
		"CREATE INDEX IF NOT EXISTS idx_stock_records_product ON stock_records(product_id)",
		"CREATE INDEX IF NOT EXISTS idx_stock_transactions_record_created ON stock_transactions(stock_record_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_stock_transactions_reference ON stock_transactions(reference_number)",

		// Sales queries
		"CREATE INDEX IF NOT EXISTS idx_sales_transactions_branch_created ON sales_transactions(branch_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sales_transactions_customer ON sales_transactions(customer_id)",
		"CREATE INDEX IF NOT EXISTS idx_sales_transactions_status_type ON sales_transactions(status, type)",
		"CREATE INDEX IF NOT EXISTS idx_sales_transaction_items_transaction ON sales_transaction_items(transaction_id)",
		"CREATE INDEX IF NOT EXISTS idx_sales_transaction_payments_transaction ON sales_transaction_payments(transaction_id)",

		// Loyalty
		"CREATE INDEX IF NOT EXISTS idx_loyalty_entries_account_created ON loyalty_entries(account_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_loyalty_entries_sales_transaction ON loyalty_entries(sales_transaction_id)",

		// Staff
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("Additional indexes created")
	return nil
}

// SeedInitialData seeds a default branch and admin user for development
func (m *Migration) SeedInitialData() error {
	log.Println("Seeding initial data...")

	var branchCount int64
	if err := m.db.Model(&inventory.Branch{}).Count(&branchCount).Error; err != nil {
		return fmt.Errorf("failed to count branches: %w", err)
	}
	branch := inventory.Branch{
		ID:       uuid.New(),
		Name:     "Main Street",
		Code:     "MAIN",
		IsActive: true,
	}
	if branchCount == 0 {
		if err := m.db.Create(&branch).Error; err != nil {
			return fmt.Errorf("failed to seed branch: %w", err)
		}
	}

	var userCount int64
	if err := m.db.Model(&user.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if userCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte("ChangeMe!2024"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		admin := user.User{
			ID:           uuid.New(),
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			FirstName:    "Store",
			LastName:     "Admin",
			Role:         "admin",
			BranchID:     &branch.ID,
			IsActive:     true,
			CreatedAt:    time.Now().UTC(),
		}
		if err := m.db.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		log.Println("Seeded default admin user admin@example.com")
	}

	log.Println("Initial data seeding completed")
	return nil
}

// GetTableInfo logs row counts for the main tables
func (m *Migration) GetTableInfo() {
	tables := []string{
		"branches", "warehouses", "products", "product_variations",
		"customers", "loyalty_accounts", "stock_records",
		"stock_transactions", "sales_transactions", "users",
	}
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			continue
		}
		log.Printf("Table %s: %d rows", table, count)
	}
}
