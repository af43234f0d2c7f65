package service_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/domain"
	"github.com/gestao-publica/procurement-api/internal/repository"
	"github.com/gestao-publica/procurement-api/internal/service"
	"github.com/gestao-publica/procurement-api/internal/testutil"
)

func setupContractServiceTestDB(t *testing.T) *gorm.DB {
	db := testutil.SetupCleanTestDB(t)
	t.Cleanup(func() {
		testutil.CleanupTestData(t, db)
	})
	return db
}

func createContractService(db *gorm.DB) *service.ContractService {
	logger := zap.NewNop()
	contractRepo := repository.NewContractRepository(db)
	ataRepo := repository.NewAtaRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	return service.NewContractService(db, contractRepo, ataRepo, supplierRepo, logger)
}

// setupDistributedAta creates an ata worth 100000 with 60% allocated to
// Secretaria de Saúde.
func setupDistributedAta(t *testing.T, db *gorm.DB, supplierID uuid.UUID) *domain.Ata {
	ata := testutil.CreateTestAta(t, db, supplierID, "1000", "100.00")
	ataSvc := createAtaService(db)
	_, err := ataSvc.AddDistribution(testutil.Context(), ata.ID, &domain.AddDistributionRequest{
		SecretariatName: "Secretaria de Saúde",
		Percentage:      decimal.NewFromInt(60),
	})
	require.NoError(t, err)
	return ata
}

func TestContractService_Create(t *testing.T) {
	db := setupContractServiceTestDB(t)
	svc := createContractService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Construtora Aurora")
	ctx := testutil.Context()
	ata := setupDistributedAta(t, db, supplier.ID)

	t.Run("direct contract skips the budget guard", func(t *testing.T) {
		req := &domain.CreateContractRequest{
			Number:     "CT-100/2026",
			SupplierID: supplier.ID,
			StartDate:  "2026-01-01",
			EndDate:    "2026-12-31",
			Items: []domain.ContractItemRequest{
				{Description: "Cimento", Unit: "SC", OriginalQty: decimal.NewFromInt(500), UnitPrice: decimal.RequireFromString("40.00")},
			},
		}

		contract, err := svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, domain.ContractOriginDirect, contract.Origin)
		assert.True(t, contract.GlobalValue.Equal(decimal.RequireFromString("20000")))
		require.Len(t, contract.Items, 1)
		assert.True(t, contract.Items[0].CurrentBalance.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, domain.ContractItemActive, contract.Items[0].State)
	})

	t.Run("ata contract within the allocation", func(t *testing.T) {
		req := &domain.CreateContractRequest{
			Number:      "CT-101/2026",
			SupplierID:  supplier.ID,
			StartDate:   "2026-01-01",
			EndDate:     "2026-12-31",
			AtaID:       &ata.ID,
			Secretariat: "Secretaria de Saúde",
			Items: []domain.ContractItemRequest{
				{Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(100), UnitPrice: decimal.RequireFromString("100.00")},
			},
		}

		contract, err := svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, domain.ContractOriginAta, contract.Origin)
		assert.True(t, contract.GlobalValue.Equal(decimal.RequireFromString("10000")))
	})

	t.Run("rejects a contract past the remaining allocation", func(t *testing.T) {
		// Allocation is 60000, sibling above consumed 10000.
		req := &domain.CreateContractRequest{
			Number:      "CT-102/2026",
			SupplierID:  supplier.ID,
			StartDate:   "2026-01-01",
			EndDate:     "2026-12-31",
			AtaID:       &ata.ID,
			Secretariat: "Secretaria de Saúde",
			Items: []domain.ContractItemRequest{
				{Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(510), UnitPrice: decimal.RequireFromString("100.00")},
			},
		}

		_, err := svc.Create(ctx, req)
		var budgetErr *domain.BudgetExceededError
		require.True(t, errors.As(err, &budgetErr))
		assert.True(t, budgetErr.Available.Equal(decimal.RequireFromString("50000")))
		assert.True(t, budgetErr.Requested.Equal(decimal.RequireFromString("51000")))
	})

	t.Run("rejects an ata contract for a secretariat with no share", func(t *testing.T) {
		req := &domain.CreateContractRequest{
			Number:      "CT-103/2026",
			SupplierID:  supplier.ID,
			StartDate:   "2026-01-01",
			EndDate:     "2026-12-31",
			AtaID:       &ata.ID,
			Secretariat: "Secretaria de Obras",
			Items: []domain.ContractItemRequest{
				{Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
			},
		}

		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, domain.ErrDanglingReference)
	})

	t.Run("requires a secretariat on ata contracts", func(t *testing.T) {
		req := &domain.CreateContractRequest{
			Number:     "CT-104/2026",
			SupplierID: supplier.ID,
			StartDate:  "2026-01-01",
			EndDate:    "2026-12-31",
			AtaID:      &ata.ID,
			Items: []domain.ContractItemRequest{
				{Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
			},
		}

		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, service.ErrSecretariatRequired)
	})

	t.Run("ata contract without a supplier inherits the ata's winner", func(t *testing.T) {
		req := &domain.CreateContractRequest{
			Number:      "CT-106/2026",
			StartDate:   "2026-01-01",
			EndDate:     "2026-12-31",
			AtaID:       &ata.ID,
			Secretariat: "Secretaria de Saúde",
			Items: []domain.ContractItemRequest{
				{Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
			},
		}

		contract, err := svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, supplier.ID, contract.SupplierID)
	})

	t.Run("direct contract without a supplier is rejected", func(t *testing.T) {
		req := &domain.CreateContractRequest{
			Number:    "CT-107/2026",
			StartDate: "2026-01-01",
			EndDate:   "2026-12-31",
			Items: []domain.ContractItemRequest{
				{Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
			},
		}

		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, service.ErrSupplierRequired)
	})

	t.Run("rejects an inverted date range", func(t *testing.T) {
		req := &domain.CreateContractRequest{
			Number:     "CT-105/2026",
			SupplierID: supplier.ID,
			StartDate:  "2026-12-31",
			EndDate:    "2026-01-01",
			Items: []domain.ContractItemRequest{
				{Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
			},
		}

		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, service.ErrInvalidDateRange)
	})
}

func TestContractService_Update(t *testing.T) {
	db := setupContractServiceTestDB(t)
	svc := createContractService(db)
	invoiceSvc := createInvoiceService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Construtora Boreal")
	ctx := testutil.Context()
	ata := setupDistributedAta(t, db, supplier.ID)

	created, err := svc.Create(ctx, &domain.CreateContractRequest{
		Number:      "CT-200/2026",
		SupplierID:  supplier.ID,
		StartDate:   "2026-01-01",
		EndDate:     "2026-12-31",
		AtaID:       &ata.ID,
		Secretariat: "Secretaria de Saúde",
		Items: []domain.ContractItemRequest{
			{Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(100), UnitPrice: decimal.RequireFromString("100.00")},
		},
	})
	require.NoError(t, err)
	itemID := created.Items[0].ID

	t.Run("quantity edit shifts the balance by the delta", func(t *testing.T) {
		// Consume 30 first so the shift has consumption to preserve.
		_, err := invoiceSvc.Create(ctx, &domain.CreateInvoiceRequest{
			ContractID: created.ID,
			Number:     "NF-0001",
			IssueDate:  "2026-02-01",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(30)},
			},
		})
		require.NoError(t, err)

		updated, err := svc.Update(ctx, created.ID, &domain.UpdateContractRequest{
			Number:      "CT-200/2026",
			SupplierID:  supplier.ID,
			StartDate:   "2026-01-01",
			EndDate:     "2026-12-31",
			AtaID:       &ata.ID,
			Secretariat: "Secretaria de Saúde",
			Items: []domain.ContractItemRequest{
				{ID: &itemID, Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(150), UnitPrice: decimal.RequireFromString("100.00")},
			},
		})
		require.NoError(t, err)
		require.Len(t, updated.Items, 1)
		assert.True(t, updated.Items[0].OriginalQty.Equal(decimal.NewFromInt(150)))
		assert.True(t, updated.Items[0].CurrentBalance.Equal(decimal.NewFromInt(120)), "30 invoiced must stay consumed")
		assert.True(t, updated.GlobalValue.Equal(decimal.RequireFromString("15000")))
	})

	t.Run("budget guard excludes the contract being edited", func(t *testing.T) {
		// 15000 of 60000 is this contract's own value; raising it to 60000
		// must pass because no sibling exists.
		updated, err := svc.Update(ctx, created.ID, &domain.UpdateContractRequest{
			Number:      "CT-200/2026",
			SupplierID:  supplier.ID,
			StartDate:   "2026-01-01",
			EndDate:     "2026-12-31",
			AtaID:       &ata.ID,
			Secretariat: "Secretaria de Saúde",
			Items: []domain.ContractItemRequest{
				{ID: &itemID, Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(600), UnitPrice: decimal.RequireFromString("100.00")},
			},
		})
		require.NoError(t, err)
		assert.True(t, updated.GlobalValue.Equal(decimal.RequireFromString("60000")))
	})

	t.Run("rejects raising the value past the allocation", func(t *testing.T) {
		_, err := svc.Update(ctx, created.ID, &domain.UpdateContractRequest{
			Number:      "CT-200/2026",
			SupplierID:  supplier.ID,
			StartDate:   "2026-01-01",
			EndDate:     "2026-12-31",
			AtaID:       &ata.ID,
			Secretariat: "Secretaria de Saúde",
			Items: []domain.ContractItemRequest{
				{ID: &itemID, Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(610), UnitPrice: decimal.RequireFromString("100.00")},
			},
		})
		var budgetErr *domain.BudgetExceededError
		require.True(t, errors.As(err, &budgetErr))
		assert.True(t, budgetErr.Available.Equal(decimal.RequireFromString("60000")))
		assert.True(t, budgetErr.Requested.Equal(decimal.RequireFromString("61000")))
	})

	t.Run("cannot drop an invoiced item", func(t *testing.T) {
		_, err := svc.Update(ctx, created.ID, &domain.UpdateContractRequest{
			Number:      "CT-200/2026",
			SupplierID:  supplier.ID,
			StartDate:   "2026-01-01",
			EndDate:     "2026-12-31",
			AtaID:       &ata.ID,
			Secretariat: "Secretaria de Saúde",
			Items: []domain.ContractItemRequest{
				{Description: "Item novo", Unit: "UN", OriginalQty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
			},
		})
		assert.ErrorIs(t, err, domain.ErrDanglingReference)
	})

	t.Run("cannot shrink quantity below invoiced consumption", func(t *testing.T) {
		_, err := svc.Update(ctx, created.ID, &domain.UpdateContractRequest{
			Number:      "CT-200/2026",
			SupplierID:  supplier.ID,
			StartDate:   "2026-01-01",
			EndDate:     "2026-12-31",
			AtaID:       &ata.ID,
			Secretariat: "Secretaria de Saúde",
			Items: []domain.ContractItemRequest{
				{ID: &itemID, Description: "Papel A4", Unit: "RES", OriginalQty: decimal.NewFromInt(20), UnitPrice: decimal.RequireFromString("100.00")},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})
}

func TestContractService_Delete(t *testing.T) {
	db := setupContractServiceTestDB(t)
	svc := createContractService(db)
	invoiceSvc := createInvoiceService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Construtora Cedro")
	ctx := testutil.Context()

	t.Run("blocks deletion while invoices reference the contract", func(t *testing.T) {
		contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "10.00")
		_, err := invoiceSvc.Create(ctx, &domain.CreateInvoiceRequest{
			ContractID: contract.ID,
			Number:     "NF-0100",
			IssueDate:  "2026-03-01",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: contract.Items[0].ID, QuantityUsed: decimal.NewFromInt(10)},
			},
		})
		require.NoError(t, err)

		err = svc.Delete(ctx, contract.ID)
		assert.ErrorIs(t, err, domain.ErrDanglingReference)
	})

	t.Run("deletes an unreferenced contract", func(t *testing.T) {
		contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "10.00")
		require.NoError(t, svc.Delete(ctx, contract.ID))

		_, err := svc.GetByID(ctx, contract.ID)
		assert.ErrorIs(t, err, service.ErrContractNotFound)
	})

	t.Run("unknown contract", func(t *testing.T) {
		err := svc.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrContractNotFound)
	})
}
