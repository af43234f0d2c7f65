package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/domain"
	"github.com/gestao-publica/procurement-api/internal/service"
	"github.com/gestao-publica/procurement-api/internal/testutil"
)

func setupAuditServiceTestDB(t *testing.T) *gorm.DB {
	db := testutil.SetupCleanTestDB(t)
	t.Cleanup(func() {
		testutil.CleanupTestData(t, db)
	})
	return db
}

func TestAuditService_AuditAllocations(t *testing.T) {
	db := setupAuditServiceTestDB(t)
	svc := service.NewAuditService(db, zap.NewNop())
	supplier := testutil.CreateTestSupplier(t, db, "Fornecedora Pitangui")
	ctx := testutil.Context()

	ata := setupDistributedAta(t, db, supplier.ID)

	contractSvc := createContractService(db)
	_, err := contractSvc.Create(ctx, &domain.CreateContractRequest{
		Number:      "CT-900/2026",
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

	t.Run("healthy ledger reports no anomalies", func(t *testing.T) {
		checked, anomalies, err := svc.AuditAllocations(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, checked, "one percentage row and one budget row")
		assert.Zero(t, anomalies)
	})

	t.Run("detects a distribution committed past its allocation", func(t *testing.T) {
		require.NoError(t, db.Exec(
			"UPDATE ata_distributions SET value = ? WHERE ata_id = ?",
			decimal.RequireFromString("5000"), ata.ID,
		).Error)

		_, anomalies, err := svc.AuditAllocations(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, anomalies)
	})

	t.Run("detects percentages summing past 100", func(t *testing.T) {
		require.NoError(t, db.Exec(
			"UPDATE ata_distributions SET percentage = ? WHERE ata_id = ?",
			decimal.NewFromInt(130), ata.ID,
		).Error)

		_, anomalies, err := svc.AuditAllocations(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, anomalies, "percentage overflow plus the budget overrun")
	})
}

func TestAuditService_AuditBalances(t *testing.T) {
	db := setupAuditServiceTestDB(t)
	svc := service.NewAuditService(db, zap.NewNop())
	supplier := testutil.CreateTestSupplier(t, db, "Fornecedora Quaraí")
	ctx := testutil.Context()

	contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "25.00")
	itemID := contract.Items[0].ID

	invoiceSvc := createInvoiceService(db)
	_, err := invoiceSvc.Create(ctx, &domain.CreateInvoiceRequest{
		ContractID: contract.ID,
		Number:     "NF-9001",
		IssueDate:  "2026-06-01",
		Items: []domain.InvoiceItemRequest{
			{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(30)},
		},
	})
	require.NoError(t, err)

	t.Run("healthy ledger reports no anomalies", func(t *testing.T) {
		checked, anomalies, err := svc.AuditBalances(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, checked)
		assert.Zero(t, anomalies)
	})

	t.Run("detects a balance that drifted from the invoiced sum", func(t *testing.T) {
		require.NoError(t, db.Exec(
			"UPDATE contract_items SET current_balance = ? WHERE id = ?",
			decimal.NewFromInt(90), itemID,
		).Error)

		_, anomalies, err := svc.AuditBalances(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, anomalies)
	})

	t.Run("detects a balance above the original quantity", func(t *testing.T) {
		require.NoError(t, db.Exec(
			"UPDATE contract_items SET current_balance = ? WHERE id = ?",
			decimal.NewFromInt(150), itemID,
		).Error)

		_, anomalies, err := svc.AuditBalances(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, anomalies)
	})
}
