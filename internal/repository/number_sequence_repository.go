package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gestao-publica/procurement-api/internal/domain"
)

// NumberSequenceRepository handles database operations for number sequences.
// Service order numbers are sequential per tenant and year, so the sequence
// row is locked while the next value is handed out.
type NumberSequenceRepository struct {
	db *gorm.DB
}

// NewNumberSequenceRepository creates a new NumberSequenceRepository
func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// NextNumberTx atomically retrieves and increments the sequence for a
// tenant/year within the caller's transaction. If no sequence exists yet one
// is created starting at 1.
func (r *NumberSequenceRepository) NextNumberTx(tx *gorm.DB, tenantID string, year int) (int, error) {
	var seq domain.NumberSequence
	var next int

	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND year = ?", tenantID, year).
		First(&seq)

	switch {
	case result.Error == gorm.ErrRecordNotFound:
		seq = domain.NumberSequence{
			TenantID:  tenantID,
			Year:      year,
			LastValue: 1,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := tx.Create(&seq).Error; err != nil {
			return 0, fmt.Errorf("failed to create number sequence: %w", err)
		}
		next = 1
	case result.Error != nil:
		return 0, fmt.Errorf("failed to get number sequence: %w", result.Error)
	default:
		next = seq.LastValue + 1
		if err := tx.Model(&seq).Updates(map[string]interface{}{
			"last_value": next,
			"updated_at": time.Now(),
		}).Error; err != nil {
			return 0, fmt.Errorf("failed to update number sequence: %w", err)
		}
	}

	return next, nil
}

// GetCurrent retrieves the current sequence value without incrementing.
// Returns 0 if no sequence exists for the tenant/year.
func (r *NumberSequenceRepository) GetCurrent(ctx context.Context, tenantID string, year int) (int, error) {
	var seq domain.NumberSequence
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND year = ?", tenantID, year).
		First(&seq)

	if result.Error == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("failed to get number sequence: %w", result.Error)
	}

	return seq.LastValue, nil
}
