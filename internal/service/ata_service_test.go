package service_test

import (
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

func setupAtaServiceTestDB(t *testing.T) *gorm.DB {
	db := testutil.SetupCleanTestDB(t)
	t.Cleanup(func() {
		testutil.CleanupTestData(t, db)
	})
	return db
}

func createAtaService(db *gorm.DB) *service.AtaService {
	logger := zap.NewNop()
	ataRepo := repository.NewAtaRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	return service.NewAtaService(db, ataRepo, supplierRepo, logger)
}

func TestAtaService_Create(t *testing.T) {
	db := setupAtaServiceTestDB(t)
	svc := createAtaService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Distribuidora Alfa")
	ctx := testutil.Context()

	t.Run("derives total from items and reserves everything", func(t *testing.T) {
		req := &domain.CreateAtaRequest{
			ProcessNumber: "PR-2026-001",
			Modality:      "Pregão Eletrônico",
			Object:        "Material de escritório",
			SupplierID:    supplier.ID,
			Year:          "2026",
			Items: []domain.AtaItemRequest{
				{ItemNumber: 1, Description: "Papel A4", Unit: "RES", Quantity: decimal.NewFromInt(1000), UnitPrice: decimal.RequireFromString("25.00")},
				{ItemNumber: 2, Description: "Caneta azul", Unit: "UN", Quantity: decimal.NewFromInt(5000), UnitPrice: decimal.RequireFromString("1.50")},
			},
		}

		ata, err := svc.Create(ctx, req)
		require.NoError(t, err)
		assert.True(t, ata.TotalValue.Equal(decimal.RequireFromString("32500")))
		assert.True(t, ata.ReservedPercentage.Equal(decimal.NewFromInt(100)))
		assert.True(t, ata.ReservedValue.Equal(decimal.RequireFromString("32500")))
		assert.Len(t, ata.Items, 2)
		assert.Equal(t, "Distribuidora Alfa", ata.SupplierName)
	})

	t.Run("rejects unknown supplier", func(t *testing.T) {
		req := &domain.CreateAtaRequest{
			ProcessNumber: "PR-2026-002",
			SupplierID:    uuid.New(),
			Year:          "2026",
			Items: []domain.AtaItemRequest{
				{Description: "Papel A4", Unit: "RES", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(25)},
			},
		}

		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, service.ErrSupplierNotFound)
	})

	t.Run("rejects non-positive item quantity", func(t *testing.T) {
		req := &domain.CreateAtaRequest{
			ProcessNumber: "PR-2026-003",
			SupplierID:    supplier.ID,
			Year:          "2026",
			Items: []domain.AtaItemRequest{
				{Description: "Papel A4", Unit: "RES", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(25)},
			},
		}

		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})
}

func TestAtaService_AddDistribution(t *testing.T) {
	db := setupAtaServiceTestDB(t)
	svc := createAtaService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Distribuidora Beta")
	ctx := testutil.Context()

	ata := testutil.CreateTestAta(t, db, supplier.ID, "1000", "100.00") // total 100000

	t.Run("allocates a share and derives its value", func(t *testing.T) {
		dto, err := svc.AddDistribution(ctx, ata.ID, &domain.AddDistributionRequest{
			SecretariatName: "Secretaria de Saúde",
			Percentage:      decimal.NewFromInt(60),
		})
		require.NoError(t, err)
		require.Len(t, dto.Distributions, 1)
		assert.True(t, dto.Distributions[0].Value.Equal(decimal.RequireFromString("60000")))
		assert.True(t, dto.ReservedPercentage.Equal(decimal.NewFromInt(40)))
	})

	t.Run("rejects a share past the remaining percentage", func(t *testing.T) {
		_, err := svc.AddDistribution(ctx, ata.ID, &domain.AddDistributionRequest{
			SecretariatName: "Secretaria de Educação",
			Percentage:      decimal.NewFromInt(50),
		})
		assert.ErrorIs(t, err, domain.ErrOverAllocation)
	})

	t.Run("rejects a duplicate secretariat", func(t *testing.T) {
		_, err := svc.AddDistribution(ctx, ata.ID, &domain.AddDistributionRequest{
			SecretariatName: "Secretaria de Saúde",
			Percentage:      decimal.NewFromInt(10),
		})
		assert.ErrorIs(t, err, domain.ErrOverAllocation)
	})

	t.Run("accepts a share that lands exactly on 100", func(t *testing.T) {
		dto, err := svc.AddDistribution(ctx, ata.ID, &domain.AddDistributionRequest{
			SecretariatName: "Secretaria de Educação",
			Percentage:      decimal.NewFromInt(40),
		})
		require.NoError(t, err)
		assert.True(t, dto.ReservedPercentage.IsZero())
		assert.True(t, dto.ReservedValue.IsZero())
	})

	t.Run("rejects non-positive percentage", func(t *testing.T) {
		_, err := svc.AddDistribution(ctx, ata.ID, &domain.AddDistributionRequest{
			SecretariatName: "Secretaria de Obras",
			Percentage:      decimal.Zero,
		})
		assert.ErrorIs(t, err, service.ErrInvalidPercentage)
	})
}

func TestAtaService_RemoveDistribution(t *testing.T) {
	db := setupAtaServiceTestDB(t)
	svc := createAtaService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Distribuidora Gama")
	ctx := testutil.Context()

	ata := testutil.CreateTestAta(t, db, supplier.ID, "1000", "100.00")
	dto, err := svc.AddDistribution(ctx, ata.ID, &domain.AddDistributionRequest{
		SecretariatName: "Secretaria de Saúde",
		Percentage:      decimal.NewFromInt(60),
	})
	require.NoError(t, err)
	distID := dto.Distributions[0].ID

	t.Run("blocks removal while contracts draw on the share", func(t *testing.T) {
		contract := &domain.Contract{
			BaseModel:   domain.BaseModel{TenantID: testutil.TestTenant},
			Number:      "CT-001/2026",
			SupplierID:  supplier.ID,
			StartDate:   ata.CreatedAt,
			EndDate:     ata.CreatedAt.AddDate(1, 0, 0),
			GlobalValue: decimal.RequireFromString("10000"),
			AtaID:       &ata.ID,
			Secretariat: "Secretaria de Saúde",
		}
		require.NoError(t, db.Create(contract).Error)

		_, err := svc.RemoveDistribution(ctx, ata.ID, distID)
		assert.ErrorIs(t, err, domain.ErrDanglingReference)

		require.NoError(t, db.Delete(contract).Error)
	})

	t.Run("returns the share to the reserve", func(t *testing.T) {
		updated, err := svc.RemoveDistribution(ctx, ata.ID, distID)
		require.NoError(t, err)
		assert.Empty(t, updated.Distributions)
		assert.True(t, updated.ReservedPercentage.Equal(decimal.NewFromInt(100)))
	})

	t.Run("unknown distribution", func(t *testing.T) {
		_, err := svc.RemoveDistribution(ctx, ata.ID, uuid.New())
		assert.ErrorIs(t, err, service.ErrDistributionNotFound)
	})
}

func TestAtaService_GetBudget(t *testing.T) {
	db := setupAtaServiceTestDB(t)
	svc := createAtaService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Distribuidora Delta")
	ctx := testutil.Context()

	ata := testutil.CreateTestAta(t, db, supplier.ID, "1000", "100.00")
	_, err := svc.AddDistribution(ctx, ata.ID, &domain.AddDistributionRequest{
		SecretariatName: "Secretaria de Saúde",
		Percentage:      decimal.NewFromInt(60),
	})
	require.NoError(t, err)

	contract := &domain.Contract{
		BaseModel:   domain.BaseModel{TenantID: testutil.TestTenant},
		Number:      "CT-002/2026",
		SupplierID:  supplier.ID,
		StartDate:   ata.CreatedAt,
		EndDate:     ata.CreatedAt.AddDate(1, 0, 0),
		GlobalValue: decimal.RequireFromString("15000"),
		AtaID:       &ata.ID,
		Secretariat: "Secretaria de Saúde",
	}
	require.NoError(t, db.Create(contract).Error)

	t.Run("reports allocated, used and available", func(t *testing.T) {
		budget, err := svc.GetBudget(ctx, ata.ID, "Secretaria de Saúde")
		require.NoError(t, err)
		assert.True(t, budget.Allocated.Equal(decimal.RequireFromString("60000")))
		assert.True(t, budget.Used.Equal(decimal.RequireFromString("15000")))
		assert.True(t, budget.Available.Equal(decimal.RequireFromString("45000")))
	})

	t.Run("unknown secretariat", func(t *testing.T) {
		_, err := svc.GetBudget(ctx, ata.ID, "Secretaria Fantasma")
		assert.ErrorIs(t, err, service.ErrDistributionNotFound)
	})
}

func TestAtaService_Delete(t *testing.T) {
	db := setupAtaServiceTestDB(t)
	svc := createAtaService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Distribuidora Épsilon")
	ctx := testutil.Context()

	t.Run("blocks deletion while contracts reference the ata", func(t *testing.T) {
		ata := testutil.CreateTestAta(t, db, supplier.ID, "100", "10.00")
		contract := &domain.Contract{
			BaseModel:  domain.BaseModel{TenantID: testutil.TestTenant},
			Number:     "CT-003/2026",
			SupplierID: supplier.ID,
			StartDate:  ata.CreatedAt,
			EndDate:    ata.CreatedAt.AddDate(1, 0, 0),
			AtaID:      &ata.ID,
		}
		require.NoError(t, db.Create(contract).Error)

		err := svc.Delete(ctx, ata.ID)
		assert.ErrorIs(t, err, domain.ErrDanglingReference)
	})

	t.Run("deletes an unreferenced ata", func(t *testing.T) {
		ata := testutil.CreateTestAta(t, db, supplier.ID, "100", "10.00")
		require.NoError(t, svc.Delete(ctx, ata.ID))

		_, err := svc.GetByID(ctx, ata.ID)
		assert.ErrorIs(t, err, service.ErrAtaNotFound)
	})
}
