package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gestao-publica/procurement-api/internal/auth"
	"github.com/gestao-publica/procurement-api/internal/domain"
)

// InvoiceFilters defines filter options for invoice listing
type InvoiceFilters struct {
	Search     string
	ContractID *uuid.UUID
	IsPaid     *bool
}

var invoiceSortableFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"number":    "number",
	"issueDate": "issue_date",
}

// InvoiceRepository handles invoice data access operations
type InvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository instance
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// CreateTx inserts an invoice with its items within a transaction
func (r *InvoiceRepository) CreateTx(tx *gorm.DB, invoice *domain.Invoice) error {
	return tx.Create(invoice).Error
}

// GetByID retrieves an invoice with items and payment preloaded
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Payment").
		Where("id = ?", id)
	if err := query.First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByIDForUpdate retrieves an invoice and its items with row locks inside a
// transaction. Settlement reads the committed quantities through this path.
func (r *InvoiceRepository) GetByIDForUpdate(tx *gorm.DB, tenantID string, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("invoice_id = ?", id).
		Order("created_at ASC").
		Find(&invoice.Items).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateTx saves invoice header changes within a transaction
func (r *InvoiceRepository) UpdateTx(tx *gorm.DB, invoice *domain.Invoice) error {
	return tx.Save(invoice).Error
}

// ReplaceItemsTx swaps the invoice's item set within a transaction
func (r *InvoiceRepository) ReplaceItemsTx(tx *gorm.DB, invoiceID uuid.UUID, items []domain.InvoiceItem) error {
	if err := tx.Where("invoice_id = ?", invoiceID).Delete(&domain.InvoiceItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].InvoiceID = invoiceID
		if err := tx.Create(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteTx removes an invoice and its items within a transaction
func (r *InvoiceRepository) DeleteTx(tx *gorm.DB, tenantID string, id uuid.UUID) error {
	if err := tx.Where("invoice_id = ?", id).Delete(&domain.InvoiceItem{}).Error; err != nil {
		return err
	}
	result := tx.Where("tenant_id = ?", tenantID).Delete(&domain.Invoice{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns invoices matching the filters with pagination
func (r *InvoiceRepository) List(ctx context.Context, filters InvoiceFilters, sort SortConfig, page, pageSize int) ([]domain.Invoice, int64, error) {
	var invoices []domain.Invoice
	var total int64

	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Invoice{}))

	if filters.Search != "" {
		search := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(number) LIKE ?", search)
	}
	if filters.ContractID != nil {
		query = query.Where("contract_id = ?", *filters.ContractID)
	}
	if filters.IsPaid != nil {
		query = query.Where("is_paid = ?", *filters.IsPaid)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	offset := (page - 1) * pageSize

	err := query.
		Preload("Items").
		Preload("Payment").
		Order(BuildOrderClause(sort, invoiceSortableFields, "updated_at DESC")).
		Offset(offset).
		Limit(pageSize).
		Find(&invoices).Error

	return invoices, total, err
}

// CountByPaidStatus counts invoices by payment status
func (r *InvoiceRepository) CountByPaidStatus(ctx context.Context, isPaid bool) (int64, error) {
	var count int64
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Invoice{})).
		Where("is_paid = ?", isPaid).
		Count(&count).Error
	return count, err
}

// SumValueByPaidStatus sums invoice item values by payment status
func (r *InvoiceRepository) SumValueByPaidStatus(ctx context.Context, isPaid bool) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&domain.InvoiceItem{}).
		Select("COALESCE(SUM(invoice_items.total_value), 0) AS total").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Where("invoices.tenant_id = ? AND invoices.is_paid = ?", auth.TenantFromContext(ctx), isPaid).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// CreatePaymentTx records a payment within a transaction
func (r *InvoiceRepository) CreatePaymentTx(tx *gorm.DB, payment *domain.Payment) error {
	return tx.Create(payment).Error
}

// DeletePaymentTx removes the payment for an invoice within a transaction
func (r *InvoiceRepository) DeletePaymentTx(tx *gorm.DB, invoiceID uuid.UUID) error {
	return tx.Where("invoice_id = ?", invoiceID).Delete(&domain.Payment{}).Error
}

// CountPaymentsForBankAccount counts payments drawn on a bank account
func (r *InvoiceRepository) CountPaymentsForBankAccount(ctx context.Context, bankAccountID uuid.UUID) (int64, error) {
	var count int64
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Payment{})).
		Where("bank_account_id = ?", bankAccountID).
		Count(&count).Error
	return count, err
}
