package service_test

import (
	"fmt"
	"math/rand"
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

func setupInvoiceServiceTestDB(t *testing.T) *gorm.DB {
	db := testutil.SetupCleanTestDB(t)
	t.Cleanup(func() {
		testutil.CleanupTestData(t, db)
	})
	return db
}

func createInvoiceService(db *gorm.DB) *service.InvoiceService {
	logger := zap.NewNop()
	invoiceRepo := repository.NewInvoiceRepository(db)
	contractRepo := repository.NewContractRepository(db)
	bankAccountRepo := repository.NewBankAccountRepository(db)
	return service.NewInvoiceService(db, invoiceRepo, contractRepo, bankAccountRepo, logger)
}

func itemBalance(t *testing.T, db *gorm.DB, itemID uuid.UUID) decimal.Decimal {
	var item domain.ContractItem
	require.NoError(t, db.First(&item, "id = ?", itemID).Error)
	return item.CurrentBalance
}

func TestInvoiceService_Create(t *testing.T) {
	db := setupInvoiceServiceTestDB(t)
	svc := createInvoiceService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Fornecedora Horizonte")
	ctx := testutil.Context()

	contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "25.00")
	itemID := contract.Items[0].ID

	t.Run("draws quantities and prices at the contract rate", func(t *testing.T) {
		invoice, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
			ContractID: contract.ID,
			Number:     "NF-1001",
			IssueDate:  "2026-02-01",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(30)},
			},
		})
		require.NoError(t, err)
		assert.False(t, invoice.IsPaid)
		assert.True(t, invoice.TotalValue.Equal(decimal.RequireFromString("750")))
		require.Len(t, invoice.Items, 1)
		assert.True(t, invoice.Items[0].MaxQuantity.Equal(decimal.NewFromInt(100)), "ceiling is balance plus own quantity")

		assert.True(t, itemBalance(t, db, itemID).Equal(decimal.NewFromInt(70)))
	})

	t.Run("rejects drawing past the remaining balance", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
			ContractID: contract.ID,
			Number:     "NF-1002",
			IssueDate:  "2026-02-02",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(80)},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		assert.True(t, itemBalance(t, db, itemID).Equal(decimal.NewFromInt(70)), "failed settlement must not move the balance")
	})

	t.Run("allows draining the balance to zero", func(t *testing.T) {
		invoice, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
			ContractID: contract.ID,
			Number:     "NF-1003",
			IssueDate:  "2026-02-03",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(70)},
			},
		})
		require.NoError(t, err)
		assert.True(t, itemBalance(t, db, itemID).IsZero())

		require.NoError(t, svc.Delete(ctx, invoice.ID))
	})

	t.Run("rejects an item from another contract", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
			ContractID: contract.ID,
			Number:     "NF-1004",
			IssueDate:  "2026-02-04",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: uuid.New(), QuantityUsed: decimal.NewFromInt(1)},
			},
		})
		assert.ErrorIs(t, err, domain.ErrDanglingReference)
	})

	t.Run("unknown contract", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
			ContractID: uuid.New(),
			Number:     "NF-1005",
			IssueDate:  "2026-02-05",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(1)},
			},
		})
		assert.ErrorIs(t, err, service.ErrContractNotFound)
	})
}

func TestInvoiceService_Update(t *testing.T) {
	db := setupInvoiceServiceTestDB(t)
	svc := createInvoiceService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Fornecedora Itapema")
	ctx := testutil.Context()

	contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "25.00")
	itemID := contract.Items[0].ID

	invoice, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
		ContractID: contract.ID,
		Number:     "NF-2001",
		IssueDate:  "2026-03-01",
		Items: []domain.InvoiceItemRequest{
			{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(30)},
		},
	})
	require.NoError(t, err)

	t.Run("edit ceiling is balance plus own held quantity", func(t *testing.T) {
		// Balance is 70 and this invoice holds 30, so 90 must settle.
		updated, err := svc.Update(ctx, invoice.ID, &domain.UpdateInvoiceRequest{
			Number:    "NF-2001",
			IssueDate: "2026-03-01",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(90)},
			},
		})
		require.NoError(t, err)
		assert.True(t, updated.TotalValue.Equal(decimal.RequireFromString("2250")))
		assert.True(t, itemBalance(t, db, itemID).Equal(decimal.NewFromInt(10)))
	})

	t.Run("rejects an edit past the ceiling", func(t *testing.T) {
		_, err := svc.Update(ctx, invoice.ID, &domain.UpdateInvoiceRequest{
			Number:    "NF-2001",
			IssueDate: "2026-03-01",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(101)},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		assert.True(t, itemBalance(t, db, itemID).Equal(decimal.NewFromInt(10)), "failed edit must roll back")
	})

	t.Run("no-op edit settles to the same balances", func(t *testing.T) {
		_, err := svc.Update(ctx, invoice.ID, &domain.UpdateInvoiceRequest{
			Number:    "NF-2001",
			IssueDate: "2026-03-01",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(90)},
			},
		})
		require.NoError(t, err)
		assert.True(t, itemBalance(t, db, itemID).Equal(decimal.NewFromInt(10)))
	})

	t.Run("lowering the quantity returns the difference", func(t *testing.T) {
		_, err := svc.Update(ctx, invoice.ID, &domain.UpdateInvoiceRequest{
			Number:    "NF-2001",
			IssueDate: "2026-03-01",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(40)},
			},
		})
		require.NoError(t, err)
		assert.True(t, itemBalance(t, db, itemID).Equal(decimal.NewFromInt(60)))
	})
}

func TestInvoiceService_PaymentLifecycle(t *testing.T) {
	db := setupInvoiceServiceTestDB(t)
	svc := createInvoiceService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Fornecedora Jacarandá")
	account := testutil.CreateTestBankAccount(t, db)
	ctx := testutil.Context()

	contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "25.00")
	itemID := contract.Items[0].ID

	invoice, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
		ContractID: contract.ID,
		Number:     "NF-3001",
		IssueDate:  "2026-04-01",
		Items: []domain.InvoiceItemRequest{
			{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(40)},
		},
	})
	require.NoError(t, err)

	t.Run("marking paid snapshots the total", func(t *testing.T) {
		paid, err := svc.MarkPaid(ctx, invoice.ID, &domain.MarkInvoicePaidRequest{
			BankAccountID: account.ID,
			Date:          "2026-04-10",
		})
		require.NoError(t, err)
		assert.True(t, paid.IsPaid)
		require.NotNil(t, paid.Payment)
		assert.True(t, paid.Payment.AmountPaid.Equal(decimal.RequireFromString("1000")))
	})

	t.Run("paid invoices cannot be edited", func(t *testing.T) {
		_, err := svc.Update(ctx, invoice.ID, &domain.UpdateInvoiceRequest{
			Number:    "NF-3001",
			IssueDate: "2026-04-01",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(10)},
			},
		})
		assert.ErrorIs(t, err, domain.ErrInvoiceLocked)
	})

	t.Run("paid invoices cannot be deleted", func(t *testing.T) {
		err := svc.Delete(ctx, invoice.ID)
		assert.ErrorIs(t, err, domain.ErrInvoiceLocked)
		assert.True(t, itemBalance(t, db, itemID).Equal(decimal.NewFromInt(60)), "locked delete must not restore balances")
	})

	t.Run("paying twice is rejected", func(t *testing.T) {
		_, err := svc.MarkPaid(ctx, invoice.ID, &domain.MarkInvoicePaidRequest{
			BankAccountID: account.ID,
			Date:          "2026-04-11",
		})
		assert.ErrorIs(t, err, service.ErrInvoiceAlreadyPaid)
	})

	t.Run("unknown bank account", func(t *testing.T) {
		other, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
			ContractID: contract.ID,
			Number:     "NF-3002",
			IssueDate:  "2026-04-02",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(10)},
			},
		})
		require.NoError(t, err)

		_, err = svc.MarkPaid(ctx, other.ID, &domain.MarkInvoicePaidRequest{
			BankAccountID: uuid.New(),
			Date:          "2026-04-12",
		})
		assert.ErrorIs(t, err, service.ErrBankAccountNotFound)
	})
}

func TestInvoiceService_RandomizedSequences(t *testing.T) {
	db := setupInvoiceServiceTestDB(t)
	svc := createInvoiceService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Fornecedora Tabatinga")
	ctx := testutil.Context()

	contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "25.00")
	itemID := contract.Items[0].ID
	originalQty := decimal.NewFromInt(100)

	rng := rand.New(rand.NewSource(42))
	held := make(map[uuid.UUID]decimal.Decimal)
	open := make([]uuid.UUID, 0)

	checkInvariant := func(t *testing.T, step int) {
		t.Helper()
		balance := itemBalance(t, db, itemID)
		require.False(t, balance.IsNegative(), "step %d: balance went negative: %s", step, balance)
		require.True(t, balance.LessThanOrEqual(originalQty), "step %d: balance %s above original %s", step, balance, originalQty)

		committed := decimal.Zero
		for _, qty := range held {
			committed = committed.Add(qty)
		}
		require.True(t, balance.Equal(originalQty.Sub(committed)),
			"step %d: balance %s != original %s - committed %s", step, balance, originalQty, committed)
	}

	randomQty := func() decimal.Decimal {
		return decimal.NewFromInt(int64(rng.Intn(60) + 1))
	}

	for step := 0; step < 80; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(open) == 0:
			qty := randomQty()
			invoice, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
				ContractID: contract.ID,
				Number:     fmt.Sprintf("NF-R%03d", step),
				IssueDate:  "2026-06-01",
				Items: []domain.InvoiceItemRequest{
					{ContractItemID: itemID, QuantityUsed: qty},
				},
			})
			if err != nil {
				require.ErrorIs(t, err, domain.ErrInsufficientBalance)
				break
			}
			held[invoice.ID] = qty
			open = append(open, invoice.ID)

		case op == 1:
			id := open[rng.Intn(len(open))]
			qty := randomQty()
			_, err := svc.Update(ctx, id, &domain.UpdateInvoiceRequest{
				Number:    "NF-R-EDIT",
				IssueDate: "2026-06-02",
				Items: []domain.InvoiceItemRequest{
					{ContractItemID: itemID, QuantityUsed: qty},
				},
			})
			if err != nil {
				require.ErrorIs(t, err, domain.ErrInsufficientBalance)
				break
			}
			held[id] = qty

		default:
			idx := rng.Intn(len(open))
			id := open[idx]
			require.NoError(t, svc.Delete(ctx, id))
			delete(held, id)
			open = append(open[:idx], open[idx+1:]...)
		}

		checkInvariant(t, step)
	}
}

func TestInvoiceService_Delete(t *testing.T) {
	db := setupInvoiceServiceTestDB(t)
	svc := createInvoiceService(db)
	supplier := testutil.CreateTestSupplier(t, db, "Fornecedora Laranjal")
	ctx := testutil.Context()

	contract := testutil.CreateTestContract(t, db, supplier.ID, "100", "25.00")
	itemID := contract.Items[0].ID

	t.Run("deleting an open invoice restores the balance", func(t *testing.T) {
		invoice, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
			ContractID: contract.ID,
			Number:     "NF-4001",
			IssueDate:  "2026-05-01",
			Items: []domain.InvoiceItemRequest{
				{ContractItemID: itemID, QuantityUsed: decimal.NewFromInt(45)},
			},
		})
		require.NoError(t, err)
		assert.True(t, itemBalance(t, db, itemID).Equal(decimal.NewFromInt(55)))

		require.NoError(t, svc.Delete(ctx, invoice.ID))
		assert.True(t, itemBalance(t, db, itemID).Equal(decimal.NewFromInt(100)))

		_, err = svc.GetByID(ctx, invoice.ID)
		assert.ErrorIs(t, err, service.ErrInvoiceNotFound)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		err := svc.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrInvoiceNotFound)
	})
}
