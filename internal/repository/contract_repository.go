package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gestao-publica/procurement-api/internal/domain"
)

// ContractFilters defines filter options for contract listing
type ContractFilters struct {
	Search      string
	SupplierID  *uuid.UUID
	AtaID       *uuid.UUID
	Secretariat string
	Origin      *domain.ContractOrigin
}

var contractSortableFields = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"number":      "number",
	"startDate":   "start_date",
	"endDate":     "end_date",
	"globalValue": "global_value",
}

// ContractRepository handles contract data access operations
type ContractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a new contract repository instance
func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create inserts a contract with its items
func (r *ContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

// CreateTx inserts a contract within an existing transaction
func (r *ContractRepository) CreateTx(tx *gorm.DB, contract *domain.Contract) error {
	return tx.Create(contract).Error
}

// GetByID retrieves a contract with its items preloaded
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	var contract domain.Contract
	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id)
	if err := query.First(&contract).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetByIDForUpdate retrieves a contract and its items with row locks inside a
// transaction. All balance mutations must go through this path so concurrent
// settlements serialize on the item rows.
func (r *ContractRepository) GetByIDForUpdate(tx *gorm.DB, tenantID string, id uuid.UUID) (*domain.Contract, error) {
	var contract domain.Contract
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("contract_id = ?", id).
		Order("created_at ASC").
		Find(&contract.Items).Error; err != nil {
		return nil, err
	}
	return &contract, nil
}

// Update saves changes to an existing contract
func (r *ContractRepository) Update(ctx context.Context, contract *domain.Contract) error {
	return r.db.WithContext(ctx).Save(contract).Error
}

// UpdateTx saves a contract within an existing transaction
func (r *ContractRepository) UpdateTx(tx *gorm.DB, contract *domain.Contract) error {
	return tx.Save(contract).Error
}

// UpdateItemTx saves a contract item within an existing transaction
func (r *ContractRepository) UpdateItemTx(tx *gorm.DB, item *domain.ContractItem) error {
	return tx.Save(item).Error
}

// CreateItemTx inserts a contract item within an existing transaction
func (r *ContractRepository) CreateItemTx(tx *gorm.DB, item *domain.ContractItem) error {
	return tx.Create(item).Error
}

// DeleteItemTx removes a contract item within an existing transaction
func (r *ContractRepository) DeleteItemTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&domain.ContractItem{}, "id = ?", id).Error
}

// Delete removes a contract and its items
func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contract_id = ?", id).Delete(&domain.ContractItem{}).Error; err != nil {
			return err
		}
		result := ApplyTenantFilter(ctx, tx).Delete(&domain.Contract{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns contracts matching the filters with pagination
func (r *ContractRepository) List(ctx context.Context, filters ContractFilters, sort SortConfig, page, pageSize int) ([]domain.Contract, int64, error) {
	var contracts []domain.Contract
	var total int64

	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Contract{}))

	if filters.Search != "" {
		search := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(number) LIKE ?", search)
	}
	if filters.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filters.SupplierID)
	}
	if filters.AtaID != nil {
		query = query.Where("ata_id = ?", *filters.AtaID)
	}
	if filters.Secretariat != "" {
		query = query.Where("secretariat = ?", filters.Secretariat)
	}
	if filters.Origin != nil {
		switch *filters.Origin {
		case domain.ContractOriginAta:
			query = query.Where("ata_id IS NOT NULL")
		case domain.ContractOriginDirect:
			query = query.Where("ata_id IS NULL")
		}
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
		Order(BuildOrderClause(sort, contractSortableFields, "updated_at DESC")).
		Offset(offset).
		Limit(pageSize).
		Find(&contracts).Error

	return contracts, total, err
}

// Count returns the number of contracts for the tenant
func (r *ContractRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Contract{})).Count(&count).Error
	return count, err
}

// CountExpiring counts contracts whose end date falls within the window
func (r *ContractRepository) CountExpiring(ctx context.Context, within time.Duration) (int64, error) {
	var count int64
	now := time.Now().UTC()
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Contract{})).
		Where("end_date >= ? AND end_date <= ?", now, now.Add(within)).
		Count(&count).Error
	return count, err
}

// ListExpiring returns contracts ending within the window, for the expiry report
func (r *ContractRepository) ListExpiring(ctx context.Context, within time.Duration) ([]domain.Contract, error) {
	var contracts []domain.Contract
	now := time.Now().UTC()
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx)).
		Where("end_date >= ? AND end_date <= ?", now, now.Add(within)).
		Order("end_date ASC").
		Find(&contracts).Error
	return contracts, err
}

// CountInvoices counts invoices recorded against the contract
func (r *ContractRepository) CountInvoices(ctx context.Context, contractID uuid.UUID) (int64, error) {
	var count int64
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Invoice{})).
		Where("contract_id = ?", contractID).
		Count(&count).Error
	return count, err
}

// CountServiceOrders counts service orders issued against the contract
func (r *ContractRepository) CountServiceOrders(ctx context.Context, contractID uuid.UUID) (int64, error) {
	var count int64
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.ServiceOrder{})).
		Where("contract_id = ?", contractID).
		Count(&count).Error
	return count, err
}

// CountInvoiceReferences counts the invoice items drawing on one contract
// item. Runs in the caller's transaction during item reconciliation.
func (r *ContractRepository) CountInvoiceReferences(tx *gorm.DB, contractItemID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&domain.InvoiceItem{}).
		Where("contract_item_id = ?", contractItemID).
		Count(&count).Error
	return count, err
}
