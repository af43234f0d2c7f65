package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gestao-publica/procurement-api/internal/domain"
)

// AtaFilters defines filter options for ata listing
type AtaFilters struct {
	Search     string
	Year       string
	SupplierID *uuid.UUID
}

var ataSortableFields = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"processNumber": "process_number",
	"year":          "year",
	"totalValue":    "total_value",
}

// AtaRepository handles ata data access operations
type AtaRepository struct {
	db *gorm.DB
}

// NewAtaRepository creates a new ata repository instance
func NewAtaRepository(db *gorm.DB) *AtaRepository {
	return &AtaRepository{db: db}
}

// Create inserts an ata with its items and distributions
func (r *AtaRepository) Create(ctx context.Context, ata *domain.Ata) error {
	return r.db.WithContext(ctx).Create(ata).Error
}

// CreateTx inserts an ata within an existing transaction
func (r *AtaRepository) CreateTx(tx *gorm.DB, ata *domain.Ata) error {
	return tx.Create(ata).Error
}

// GetByID retrieves an ata with items and distributions preloaded
func (r *AtaRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ata, error) {
	var ata domain.Ata
	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("item_number ASC, created_at ASC")
		}).
		Preload("Distributions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id)
	if err := query.First(&ata).Error; err != nil {
		return nil, err
	}
	return &ata, nil
}

// GetByIDForUpdate retrieves an ata with a row lock inside a transaction.
// Distributions are loaded locked as well so percentage math is serialized.
func (r *AtaRepository) GetByIDForUpdate(tx *gorm.DB, tenantID string, id uuid.UUID) (*domain.Ata, error) {
	var ata domain.Ata
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&ata).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ata_id = ?", id).
		Order("created_at ASC").
		Find(&ata.Distributions).Error; err != nil {
		return nil, err
	}
	return &ata, nil
}

// Update saves changes to an existing ata
func (r *AtaRepository) Update(ctx context.Context, ata *domain.Ata) error {
	return r.db.WithContext(ctx).Save(ata).Error
}

// Delete removes an ata and its dependent rows
func (r *AtaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ata_id = ?", id).Delete(&domain.AtaItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ata_id = ?", id).Delete(&domain.AtaDistribution{}).Error; err != nil {
			return err
		}
		result := ApplyTenantFilter(ctx, tx).Delete(&domain.Ata{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns atas matching the filters with pagination
func (r *AtaRepository) List(ctx context.Context, filters AtaFilters, sort SortConfig, page, pageSize int) ([]domain.Ata, int64, error) {
	var atas []domain.Ata
	var total int64

	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Ata{}))

	if filters.Search != "" {
		search := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(process_number) LIKE ? OR LOWER(object) LIKE ?", search, search)
	}
	if filters.Year != "" {
		query = query.Where("year = ?", filters.Year)
	}
	if filters.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filters.SupplierID)
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
		Preload("Distributions").
		Order(BuildOrderClause(sort, ataSortableFields, "updated_at DESC")).
		Offset(offset).
		Limit(pageSize).
		Find(&atas).Error

	return atas, total, err
}

// Count returns the number of atas for the tenant
func (r *AtaRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Ata{})).Count(&count).Error
	return count, err
}

// ReplaceItems swaps the ata's item set inside a transaction
func (r *AtaRepository) ReplaceItems(tx *gorm.DB, ataID uuid.UUID, items []domain.AtaItem) error {
	if err := tx.Where("ata_id = ?", ataID).Delete(&domain.AtaItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].AtaID = ataID
		if err := tx.Create(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateDistribution inserts a distribution within a transaction
func (r *AtaRepository) CreateDistribution(tx *gorm.DB, dist *domain.AtaDistribution) error {
	return tx.Create(dist).Error
}

// UpdateDistribution saves a distribution within a transaction
func (r *AtaRepository) UpdateDistribution(tx *gorm.DB, dist *domain.AtaDistribution) error {
	return tx.Save(dist).Error
}

// DeleteDistribution removes a distribution within a transaction
func (r *AtaRepository) DeleteDistribution(tx *gorm.DB, id uuid.UUID) error {
	result := tx.Delete(&domain.AtaDistribution{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetDistribution retrieves a single distribution by ID
func (r *AtaRepository) GetDistribution(ctx context.Context, id uuid.UUID) (*domain.AtaDistribution, error) {
	var dist domain.AtaDistribution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dist).Error; err != nil {
		return nil, err
	}
	return &dist, nil
}

// CountContractsForDistribution counts contracts drawing on an ata/secretariat pair
func (r *AtaRepository) CountContractsForDistribution(ctx context.Context, ataID uuid.UUID, secretariat string) (int64, error) {
	var count int64
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Contract{})).
		Where("ata_id = ? AND secretariat = ?", ataID, secretariat).
		Count(&count).Error
	return count, err
}

// CountContractsForAta counts contracts drawing on the ata
func (r *AtaRepository) CountContractsForAta(ctx context.Context, ataID uuid.UUID) (int64, error) {
	var count int64
	err := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.Contract{})).
		Where("ata_id = ?", ataID).
		Count(&count).Error
	return count, err
}

// SumContractValues sums globalValue over contracts that draw on the given
// ata/secretariat pair, optionally excluding one contract. Runs inside the
// caller's transaction so the budget guard sees a consistent snapshot.
func (r *AtaRepository) SumContractValues(tx *gorm.DB, tenantID string, ataID uuid.UUID, secretariat string, excludeContractID *uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	query := tx.Model(&domain.Contract{}).
		Select("COALESCE(SUM(global_value), 0) AS total").
		Where("tenant_id = ? AND ata_id = ? AND secretariat = ?", tenantID, ataID, secretariat)
	if excludeContractID != nil {
		query = query.Where("id <> ?", *excludeContractID)
	}
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}
