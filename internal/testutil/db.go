// Package testutil provides helpers for tests that run against the test
// PostgreSQL database.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gestao-publica/procurement-api/internal/auth"
	"github.com/gestao-publica/procurement-api/internal/domain"
)

// TestTenant is the tenant used by all test fixtures.
const TestTenant = "prefeitura-teste"

// SetupTestDB creates a connection to the test PostgreSQL database.
// It uses environment variables or falls back to docker-compose defaults.
func SetupTestDB(t *testing.T) *gorm.DB {
	host := getEnvOrDefault("DATABASE_HOST", "localhost")
	port := getEnvOrDefault("DATABASE_PORT", "5432")
	user := getEnvOrDefault("DATABASE_USER", "procurement_user")
	password := getEnvOrDefault("DATABASE_PASSWORD", "procurement_password")
	dbname := getEnvOrDefault("DATABASE_NAME", "procurement")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		host, port, user, password, dbname)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err, "Failed to connect to test database. Ensure PostgreSQL is running.")

	require.NoError(t, db.AutoMigrate(
		&domain.Supplier{},
		&domain.Ata{},
		&domain.AtaItem{},
		&domain.AtaDistribution{},
		&domain.Contract{},
		&domain.ContractItem{},
		&domain.Invoice{},
		&domain.InvoiceItem{},
		&domain.Payment{},
		&domain.BankAccount{},
		&domain.ServiceOrder{},
		&domain.ServiceOrderItem{},
		&domain.NumberSequence{},
	))

	return db
}

// SetupCleanTestDB connects and wipes test data first.
func SetupCleanTestDB(t *testing.T) *gorm.DB {
	db := SetupTestDB(t)
	CleanupTestData(t, db)
	return db
}

// CleanupTestData deletes test rows in dependency order.
func CleanupTestData(t *testing.T, db *gorm.DB) {
	tables := []string{
		"payments",
		"invoice_items",
		"invoices",
		"service_order_items",
		"service_orders",
		"contract_items",
		"contracts",
		"ata_distributions",
		"ata_items",
		"atas",
		"bank_accounts",
		"suppliers",
		"number_sequences",
	}

	for _, table := range tables {
		err := db.Exec(fmt.Sprintf("DELETE FROM %s WHERE id IS NOT NULL", table)).Error
		if err != nil {
			t.Logf("Note: Could not clean table %s: %v", table, err)
		}
	}
}

// Context returns a context authenticated as an operator of the test tenant.
func Context() context.Context {
	userCtx := &auth.UserContext{
		UserID:      uuid.New(),
		DisplayName: "Test User",
		Email:       "teste@prefeitura.gov.br",
		Role:        auth.RoleOperator,
		TenantID:    TestTenant,
	}
	return auth.WithUserContext(context.Background(), userCtx)
}

// CreateTestSupplier creates a supplier owned by the test tenant.
func CreateTestSupplier(t *testing.T, db *gorm.DB, name string) *domain.Supplier {
	supplier := &domain.Supplier{
		BaseModel: domain.BaseModel{TenantID: TestTenant},
		Name:      name,
		CNPJ:      fmt.Sprintf("%014d", time.Now().UnixNano()%100000000000000),
		Email:     "fornecedor@example.com",
		Phone:     "11 99999-0000",
	}
	require.NoError(t, db.Create(supplier).Error)
	return supplier
}

// CreateTestAta creates an ata with a single item worth qty x price.
func CreateTestAta(t *testing.T, db *gorm.DB, supplierID uuid.UUID, qty, price string) *domain.Ata {
	quantity := decimal.RequireFromString(qty)
	unitPrice := decimal.RequireFromString(price)
	item := domain.AtaItem{
		BaseModel:   domain.BaseModel{TenantID: TestTenant},
		ItemNumber:  1,
		Description: "Item de teste",
		Unit:        "UN",
		Quantity:    quantity,
		UnitPrice:   unitPrice,
	}
	item.Recompute()

	ata := &domain.Ata{
		BaseModel:          domain.BaseModel{TenantID: TestTenant},
		ProcessNumber:      fmt.Sprintf("PR-%d", time.Now().UnixNano()),
		Modality:           "Pregão Eletrônico",
		Object:             "Aquisição de materiais",
		SupplierID:         supplierID,
		Year:               fmt.Sprintf("%d", time.Now().Year()),
		TotalValue:         item.TotalPrice,
		ReservedPercentage: decimal.NewFromInt(100),
		Items:              []domain.AtaItem{item},
	}
	require.NoError(t, db.Create(ata).Error)
	return ata
}

// CreateTestContract creates a direct contract with one item.
func CreateTestContract(t *testing.T, db *gorm.DB, supplierID uuid.UUID, qty, price string) *domain.Contract {
	quantity := decimal.RequireFromString(qty)
	unitPrice := decimal.RequireFromString(price)
	item := domain.ContractItem{
		BaseModel:      domain.BaseModel{TenantID: TestTenant},
		Description:    "Item contratado",
		Unit:           "UN",
		OriginalQty:    quantity,
		UnitPrice:      unitPrice,
		CurrentBalance: quantity,
	}

	contract := &domain.Contract{
		BaseModel:   domain.BaseModel{TenantID: TestTenant},
		Number:      fmt.Sprintf("CT-%d", time.Now().UnixNano()),
		SupplierID:  supplierID,
		StartDate:   time.Now().UTC(),
		EndDate:     time.Now().UTC().AddDate(1, 0, 0),
		GlobalValue: item.Subtotal(),
		Items:       []domain.ContractItem{item},
	}
	require.NoError(t, db.Create(contract).Error)
	return contract
}

// CreateTestBankAccount creates a bank account owned by the test tenant.
func CreateTestBankAccount(t *testing.T, db *gorm.DB) *domain.BankAccount {
	account := &domain.BankAccount{
		BaseModel: domain.BaseModel{TenantID: TestTenant},
		Bank:      "Banco do Brasil",
		Agency:    "1234-5",
		Account:   "67890-1",
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
