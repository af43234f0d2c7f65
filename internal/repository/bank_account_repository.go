package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/domain"
)

// BankAccountFilters defines filter options for bank account listing
type BankAccountFilters struct {
	Search      string
	Secretariat string
}

var bankAccountSortableFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"bank":      "bank",
	"agency":    "agency",
	"account":   "account",
}

// BankAccountRepository handles bank account data access operations
type BankAccountRepository struct {
	db *gorm.DB
}

// NewBankAccountRepository creates a new bank account repository instance
func NewBankAccountRepository(db *gorm.DB) *BankAccountRepository {
	return &BankAccountRepository{db: db}
}

// Create inserts a new bank account
func (r *BankAccountRepository) Create(ctx context.Context, account *domain.BankAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetByID retrieves a bank account by its ID
func (r *BankAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	var account domain.BankAccount
	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx)).Where("id = ?", id)
	if err := query.First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// Update saves changes to an existing bank account
func (r *BankAccountRepository) Update(ctx context.Context, account *domain.BankAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// Delete removes a bank account
func (r *BankAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := ApplyTenantFilter(ctx, r.db.WithContext(ctx)).Delete(&domain.BankAccount{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns bank accounts matching the filters with pagination
func (r *BankAccountRepository) List(ctx context.Context, filters BankAccountFilters, sort SortConfig, page, pageSize int) ([]domain.BankAccount, int64, error) {
	var accounts []domain.BankAccount
	var total int64

	query := ApplyTenantFilter(ctx, r.db.WithContext(ctx).Model(&domain.BankAccount{}))

	if filters.Search != "" {
		search := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(bank) LIKE ? OR account LIKE ?", search, "%"+filters.Search+"%")
	}
	if filters.Secretariat != "" {
		query = query.Where("secretariat = ?", filters.Secretariat)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	offset := (page - 1) * pageSize

	err := query.
		Order(BuildOrderClause(sort, bankAccountSortableFields, "updated_at DESC")).
		Offset(offset).
		Limit(pageSize).
		Find(&accounts).Error

	return accounts, total, err
}
