package service_test

import (
	"fmt"
	"testing"
	"time"

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

func setupServiceOrderTestDB(t *testing.T) *gorm.DB {
	db := testutil.SetupCleanTestDB(t)
	t.Cleanup(func() {
		testutil.CleanupTestData(t, db)
	})
	return db
}

func createServiceOrderService(db *gorm.DB) *service.ServiceOrderService {
	logger := zap.NewNop()
	orderRepo := repository.NewServiceOrderRepository(db)
	contractRepo := repository.NewContractRepository(db)
	sequenceRepo := repository.NewNumberSequenceRepository(db)
	return service.NewServiceOrderService(db, orderRepo, contractRepo, sequenceRepo, logger)
}

func TestServiceOrderService_Create(t *testing.T) {
	db := setupServiceOrderTestDB(t)
	svc := createServiceOrderService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Fornecedora Mirante")
	ctx := testutil.Context()

	contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "25.00")
	itemID := contract.Items[0].ID
	year := time.Now().Year()

	t.Run("numbers orders sequentially per year", func(t *testing.T) {
		first, err := svc.Create(ctx, &domain.CreateServiceOrderRequest{
			ContractID:  contract.ID,
			IssueDate:   fmt.Sprintf("%d-06-01", year),
			Description: "Entrega de material de escritório",
			Items: []domain.ServiceOrderItemRequest{
				{ContractItemID: itemID, Quantity: decimal.NewFromInt(10)},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("001/%d", year), first.Number)
		assert.Equal(t, domain.ServiceOrderOpen, first.Status)

		second, err := svc.Create(ctx, &domain.CreateServiceOrderRequest{
			ContractID:  contract.ID,
			IssueDate:   fmt.Sprintf("%d-06-02", year),
			Description: "Segunda entrega",
			Items: []domain.ServiceOrderItemRequest{
				{ContractItemID: itemID, Quantity: decimal.NewFromInt(5)},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("002/%d", year), second.Number)
	})

	t.Run("restarts numbering each year", func(t *testing.T) {
		order, err := svc.Create(ctx, &domain.CreateServiceOrderRequest{
			ContractID:  contract.ID,
			IssueDate:   fmt.Sprintf("%d-01-15", year+1),
			Description: "Entrega do exercício seguinte",
			Items: []domain.ServiceOrderItemRequest{
				{ContractItemID: itemID, Quantity: decimal.NewFromInt(3)},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("001/%d", year+1), order.Number)
	})

	t.Run("snapshots the contract unit price", func(t *testing.T) {
		order, err := svc.Create(ctx, &domain.CreateServiceOrderRequest{
			ContractID:  contract.ID,
			IssueDate:   fmt.Sprintf("%d-06-03", year),
			Description: "Entrega avulsa",
			Items: []domain.ServiceOrderItemRequest{
				{ContractItemID: itemID, Quantity: decimal.NewFromInt(4)},
			},
		})
		require.NoError(t, err)
		require.Len(t, order.Items, 1)
		assert.True(t, order.Items[0].UnitPrice.Equal(decimal.RequireFromString("25.00")))
		assert.True(t, order.Items[0].Total.Equal(decimal.RequireFromString("100")))

		// Issuing an order never draws from the quantity ledger.
		var item domain.ContractItem
		require.NoError(t, db.First(&item, "id = ?", itemID).Error)
		assert.True(t, item.CurrentBalance.Equal(decimal.NewFromInt(100)))
	})

	t.Run("rejects an item outside the contract", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateServiceOrderRequest{
			ContractID:  contract.ID,
			IssueDate:   fmt.Sprintf("%d-06-04", year),
			Description: "Entrega inválida",
			Items: []domain.ServiceOrderItemRequest{
				{ContractItemID: uuid.New(), Quantity: decimal.NewFromInt(1)},
			},
		})
		assert.ErrorIs(t, err, domain.ErrDanglingReference)
	})

	t.Run("rejects a non-positive quantity", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateServiceOrderRequest{
			ContractID:  contract.ID,
			IssueDate:   fmt.Sprintf("%d-06-05", year),
			Description: "Entrega inválida",
			Items: []domain.ServiceOrderItemRequest{
				{ContractItemID: itemID, Quantity: decimal.Zero},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})

	t.Run("unknown contract", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateServiceOrderRequest{
			ContractID:  uuid.New(),
			IssueDate:   fmt.Sprintf("%d-06-06", year),
			Description: "Entrega inválida",
			Items: []domain.ServiceOrderItemRequest{
				{ContractItemID: itemID, Quantity: decimal.NewFromInt(1)},
			},
		})
		assert.ErrorIs(t, err, service.ErrContractNotFound)
	})
}

func TestServiceOrderService_UpdateStatus(t *testing.T) {
	db := setupServiceOrderTestDB(t)
	svc := createServiceOrderService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Fornecedora Navegantes")
	ctx := testutil.Context()

	contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "25.00")
	itemID := contract.Items[0].ID

	newOrder := func(t *testing.T) *domain.ServiceOrderDTO {
		t.Helper()
		order, err := svc.Create(ctx, &domain.CreateServiceOrderRequest{
			ContractID:  contract.ID,
			IssueDate:   "2026-07-01",
			Description: "Entrega de teste",
			Items: []domain.ServiceOrderItemRequest{
				{ContractItemID: itemID, Quantity: decimal.NewFromInt(2)},
			},
		})
		require.NoError(t, err)
		return order
	}

	t.Run("open orders can be completed", func(t *testing.T) {
		order := newOrder(t)
		updated, err := svc.UpdateStatus(ctx, order.ID, domain.ServiceOrderCompleted)
		require.NoError(t, err)
		assert.Equal(t, domain.ServiceOrderCompleted, updated.Status)
	})

	t.Run("open orders can be cancelled", func(t *testing.T) {
		order := newOrder(t)
		updated, err := svc.UpdateStatus(ctx, order.ID, domain.ServiceOrderCancelled)
		require.NoError(t, err)
		assert.Equal(t, domain.ServiceOrderCancelled, updated.Status)
	})

	t.Run("completed orders are final", func(t *testing.T) {
		order := newOrder(t)
		_, err := svc.UpdateStatus(ctx, order.ID, domain.ServiceOrderCompleted)
		require.NoError(t, err)

		_, err = svc.UpdateStatus(ctx, order.ID, domain.ServiceOrderCancelled)
		assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		order := newOrder(t)
		_, err := svc.UpdateStatus(ctx, order.ID, domain.ServiceOrderStatus("archived"))
		assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, uuid.New(), domain.ServiceOrderCompleted)
		assert.ErrorIs(t, err, service.ErrServiceOrderNotFound)
	})
}

func TestServiceOrderService_Delete(t *testing.T) {
	db := setupServiceOrderTestDB(t)
	svc := createServiceOrderService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Fornecedora Oiapoque")
	ctx := testutil.Context()

	contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "25.00")
	itemID := contract.Items[0].ID

	order, err := svc.Create(ctx, &domain.CreateServiceOrderRequest{
		ContractID:  contract.ID,
		IssueDate:   "2026-08-01",
		Description: "Entrega para exclusão",
		Items: []domain.ServiceOrderItemRequest{
			{ContractItemID: itemID, Quantity: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)

	t.Run("open orders cannot be deleted", func(t *testing.T) {
		err := svc.Delete(ctx, order.ID)
		assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
	})

	t.Run("cancelled orders can be deleted", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, order.ID, domain.ServiceOrderCancelled)
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, order.ID))

		_, err = svc.GetByID(ctx, order.ID)
		assert.ErrorIs(t, err, service.ErrServiceOrderNotFound)
	})

	t.Run("unknown order", func(t *testing.T) {
		err := svc.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrServiceOrderNotFound)
	})
}
