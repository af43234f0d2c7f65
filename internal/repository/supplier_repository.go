package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/domain"
)

// SupplierFilters defines filter options for supplier listing
type SupplierFilters struct {
	Search string
}

// supplierSortableFields maps API field names to database column names.
// Only fields in this map can be used for sorting (whitelist approach).
var supplierSortableFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"cnpj":      "cnpj",
}

// SupplierRepository handles supplier data access operations
type SupplierRepository struct {
	db *gorm.DB
}

// NewSupplierRepository creates a new supplier repository instance
func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create creates a new supplier in the database
func (r *SupplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

// GetByID retrieves a supplier by its ID
func (r *SupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	var supplier domain.Supplier
	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx)).Where("id = ?", id)
	if err := query.First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// GetByCNPJ retrieves a supplier by its registration number
func (r *SupplierRepository) GetByCNPJ(ctx context.Context, cnpj string) (*domain.Supplier, error) {
	var supplier domain.Supplier
	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx)).Where("cnpj = ?", cnpj)
	if err := query.First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// Update saves changes to an existing supplier
func (r *SupplierRepository) Update(ctx context.Context, supplier *domain.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

// Delete removes a supplier from the database
func (r *SupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := ApplyTenantFilter(ctx, r.db.WithContext(ctx)).Delete(&domain.Supplier{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns suppliers matching the filters with pagination
func (r *SupplierRepository) List(ctx context.Context, filters SupplierFilters, sort SortConfig, page, pageSize int) ([]domain.Supplier, int64, error) {
	var suppliers []domain.Supplier
	var total int64

	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Supplier{}))

	if filters.Search != "" {
		search := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR cnpj LIKE ?", search, "%"+filters.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	offset := (page - 1) * pageSize

	err := query.
		Order(BuildOrderClause(sort, supplierSortableFields, "updated_at DESC")).
		Offset(offset).
		Limit(pageSize).
		Find(&suppliers).Error

	return suppliers, total, err
}

// Count returns the number of suppliers for the tenant
func (r *SupplierRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Supplier{})).Count(&count).Error
	return count, err
}

// CountReferences counts atas and contracts that point at the supplier.
// Used to guard deletion against dangling references.
func (r *SupplierRepository) CountReferences(ctx context.Context, supplierID uuid.UUID) (int64, error) {
	var atas, contracts int64
	if err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Ata{})).
		Where("supplier_id = ?", supplierID).Count(&atas).Error; err != nil {
		return 0, err
	}
	if err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Contract{})).
		Where("supplier_id = ?", supplierID).Count(&contracts).Error; err != nil {
		return 0, err
	}
	return atas + contracts, nil
}
