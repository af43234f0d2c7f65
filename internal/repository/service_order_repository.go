package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/domain"
)

// ServiceOrderFilters defines filter options for service order listing
type ServiceOrderFilters struct {
	Search     string
	ContractID *uuid.UUID
	Status     *domain.ServiceOrderStatus
}

var serviceOrderSortableFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"number":    "number",
	"issueDate": "issue_date",
	"status":    "status",
}

// ServiceOrderRepository handles service order data access operations
type ServiceOrderRepository struct {
	db *gorm.DB
}

// NewServiceOrderRepository creates a new service order repository instance
func NewServiceOrderRepository(db *gorm.DB) *ServiceOrderRepository {
	return &ServiceOrderRepository{db: db}
}

// CreateTx inserts a service order with its items within a transaction
func (r *ServiceOrderRepository) CreateTx(tx *gorm.DB, order *domain.ServiceOrder) error {
	return tx.Create(order).Error
}

// GetByID retrieves a service order with its items preloaded
func (r *ServiceOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceOrder, error) {
	var order domain.ServiceOrder
	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id)
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Update saves changes to an existing service order
func (r *ServiceOrderRepository) Update(ctx context.Context, order *domain.ServiceOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// Delete removes a service order and its items
func (r *ServiceOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_order_id = ?", id).Delete(&domain.ServiceOrderItem{}).Error; err != nil {
			return err
		}
		result := ApplyTenantFilter(ctx, tx).Delete(&domain.ServiceOrder{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns service orders matching the filters with pagination
func (r *ServiceOrderRepository) List(ctx context.Context, filters ServiceOrderFilters, sort SortConfig, page, pageSize int) ([]domain.ServiceOrder, int64, error) {
	var orders []domain.ServiceOrder
	var total int64

	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.ServiceOrder{}))

	if filters.Search != "" {
		search := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(number) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}
	if filters.ContractID != nil {
		query = query.Where("contract_id = ?", *filters.ContractID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
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
		Order(BuildOrderClause(sort, serviceOrderSortableFields, "updated_at DESC")).
		Offset(offset).
		Limit(pageSize).
		Find(&orders).Error

	return orders, total, err
}
