package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/auth"
	"github.com/gestao-publica/procurement-api/internal/domain"
	"github.com/gestao-publica/procurement-api/internal/mapper"
	"github.com/gestao-publica/procurement-api/internal/repository"
)

// AtaService handles business logic for price-registration agreements and
// their secretariat allocations.
type AtaService struct {
	db           *gorm.DB
	ataRepo      *repository.AtaRepository
	supplierRepo *repository.SupplierRepository
	logger       *zap.Logger
}

// NewAtaService creates a new ata service instance
func NewAtaService(
	db *gorm.DB,
	ataRepo *repository.AtaRepository,
	supplierRepo *repository.SupplierRepository,
	logger *zap.Logger,
) *AtaService {
	return &AtaService{
		db:           db,
		ataRepo:      ataRepo,
		supplierRepo: supplierRepo,
		logger:       logger,
	}
}

// Create creates a new ata. The total value is derived from the items; the
// whole value starts reserved until distributions are added.
func (s *AtaService) Create(ctx context.Context, req *domain.CreateAtaRequest) (*domain.AtaDTO, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, req.SupplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: supplier %s", ErrSupplierNotFound, req.SupplierID)
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	items, total, err := buildAtaItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	ata := &domain.Ata{
		BaseModel:          domain.BaseModel{TenantID: auth.TenantFromContext(ctx)},
		ProcessNumber:      req.ProcessNumber,
		Modality:           req.Modality,
		Object:             req.Object,
		SupplierID:         req.SupplierID,
		Year:               req.Year,
		TotalValue:         total,
		ReservedPercentage: domain.HundredPercent,
		Items:              items,
	}

	if err := s.ataRepo.Create(ctx, ata); err != nil {
		return nil, fmt.Errorf("failed to create ata: %w", err)
	}

	s.logger.Info("ata created",
		zap.String("ata_id", ata.ID.String()),
		zap.String("process_number", ata.ProcessNumber),
		zap.String("total_value", ata.TotalValue.String()),
	)

	dto := mapper.ToAtaDTO(ata, supplier.Name)
	return &dto, nil
}

// GetByID retrieves an ata by ID
func (s *AtaService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AtaDTO, error) {
	ata, err := s.ataRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAtaNotFound
		}
		return nil, fmt.Errorf("failed to get ata: %w", err)
	}
	dto := mapper.ToAtaDTO(ata, s.supplierName(ctx, ata.SupplierID))
	return &dto, nil
}

// Update updates an ata's header and items. The total value is re-derived
// and every distribution's monetary value is recomputed from its percentage
// against the new total.
func (s *AtaService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateAtaRequest) (*domain.AtaDTO, error) {
	tenantID := auth.TenantFromContext(ctx)

	items, total, err := buildAtaItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ata, err := s.ataRepo.GetByIDForUpdate(tx, tenantID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAtaNotFound
			}
			return fmt.Errorf("failed to lock ata: %w", err)
		}

		ata.ProcessNumber = req.ProcessNumber
		ata.Modality = req.Modality
		ata.Object = req.Object
		ata.SupplierID = req.SupplierID
		ata.Year = req.Year
		ata.TotalValue = total

		if err := s.ataRepo.ReplaceItems(tx, ata.ID, items); err != nil {
			return fmt.Errorf("failed to replace ata items: %w", err)
		}

		for i := range ata.Distributions {
			dist := &ata.Distributions[i]
			dist.Value = domain.MoneyShare(total, dist.Percentage)
			if err := s.ataRepo.UpdateDistribution(tx, dist); err != nil {
				return fmt.Errorf("failed to recompute distribution: %w", err)
			}
		}

		ata.Items = nil
		ata.Distributions = nil
		return tx.Save(ata).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// Delete removes an ata. Atas with contracts drawing on them cannot be
// removed.
func (s *AtaService) Delete(ctx context.Context, id uuid.UUID) error {
	contracts, err := s.ataRepo.CountContractsForAta(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count contracts: %w", err)
	}
	if contracts > 0 {
		return fmt.Errorf("%w: ata has %d contract(s)", domain.ErrDanglingReference, contracts)
	}

	if err := s.ataRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAtaNotFound
		}
		return fmt.Errorf("failed to delete ata: %w", err)
	}

	s.logger.Info("ata deleted", zap.String("ata_id", id.String()))
	return nil
}

// List returns atas with pagination
func (s *AtaService) List(ctx context.Context, filters repository.AtaFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	atas, total, err := s.ataRepo.List(ctx, filters, sort, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list atas: %w", err)
	}

	dtos := make([]domain.AtaDTO, 0, len(atas))
	for i := range atas {
		dtos = append(dtos, mapper.ToAtaDTO(&atas[i], s.supplierName(ctx, atas[i].SupplierID)))
	}

	return paginate(dtos, total, page, pageSize), nil
}

// AddDistribution allocates a percentage share of the ata to a secretariat.
// The sum of all distribution percentages can never exceed 100; what is not
// distributed stays in the reserve.
func (s *AtaService) AddDistribution(ctx context.Context, ataID uuid.UUID, req *domain.AddDistributionRequest) (*domain.AtaDTO, error) {
	tenantID := auth.TenantFromContext(ctx)

	if req.Percentage.Sign() <= 0 {
		return nil, ErrInvalidPercentage
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ata, err := s.ataRepo.GetByIDForUpdate(tx, tenantID, ataID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAtaNotFound
			}
			return fmt.Errorf("failed to lock ata: %w", err)
		}

		if existing := ata.FindDistribution(req.SecretariatName); existing != nil {
			return fmt.Errorf("%w: secretariat %q already has a share", domain.ErrOverAllocation, req.SecretariatName)
		}

		available := domain.AvailablePercentage(ata.Distributions)
		if req.Percentage.GreaterThan(available) {
			return fmt.Errorf("%w: requested %s%%, available %s%%",
				domain.ErrOverAllocation, req.Percentage, available)
		}

		dist := &domain.AtaDistribution{
			BaseModel:       domain.BaseModel{TenantID: tenantID},
			AtaID:           ata.ID,
			SecretariatName: req.SecretariatName,
			Percentage:      req.Percentage,
			Value:           domain.MoneyShare(ata.TotalValue, req.Percentage),
		}
		if err := s.ataRepo.CreateDistribution(tx, dist); err != nil {
			return fmt.Errorf("failed to create distribution: %w", err)
		}

		ata.ReservedPercentage = available.Sub(req.Percentage)
		ata.Items = nil
		ata.Distributions = nil
		return tx.Save(ata).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("distribution added",
		zap.String("ata_id", ataID.String()),
		zap.String("secretariat", req.SecretariatName),
		zap.String("percentage", req.Percentage.String()),
	)

	return s.GetByID(ctx, ataID)
}

// RemoveDistribution returns a secretariat's share to the reserve.
// Distributions with contracts drawing on them cannot be removed.
func (s *AtaService) RemoveDistribution(ctx context.Context, ataID, distributionID uuid.UUID) (*domain.AtaDTO, error) {
	tenantID := auth.TenantFromContext(ctx)

	dist, err := s.ataRepo.GetDistribution(ctx, distributionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDistributionNotFound
		}
		return nil, fmt.Errorf("failed to get distribution: %w", err)
	}
	if dist.AtaID != ataID {
		return nil, ErrDistributionNotFound
	}

	contracts, err := s.ataRepo.CountContractsForDistribution(ctx, ataID, dist.SecretariatName)
	if err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}
	if contracts > 0 {
		return nil, fmt.Errorf("%w: %d contract(s) draw on secretariat %q",
			domain.ErrDanglingReference, contracts, dist.SecretariatName)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ata, err := s.ataRepo.GetByIDForUpdate(tx, tenantID, ataID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAtaNotFound
			}
			return fmt.Errorf("failed to lock ata: %w", err)
		}

		if err := s.ataRepo.DeleteDistribution(tx, distributionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDistributionNotFound
			}
			return fmt.Errorf("failed to delete distribution: %w", err)
		}

		remaining := make([]domain.AtaDistribution, 0, len(ata.Distributions))
		for i := range ata.Distributions {
			if ata.Distributions[i].ID != distributionID {
				remaining = append(remaining, ata.Distributions[i])
			}
		}
		ata.ReservedPercentage = domain.AvailablePercentage(remaining)
		ata.Items = nil
		ata.Distributions = nil
		return tx.Save(ata).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("distribution removed",
		zap.String("ata_id", ataID.String()),
		zap.String("distribution_id", distributionID.String()),
	)

	return s.GetByID(ctx, ataID)
}

// GetBudget reports the sibling-adjusted standing of one secretariat's
// allocation on the ata.
func (s *AtaService) GetBudget(ctx context.Context, ataID uuid.UUID, secretariat string) (*domain.AtaBudgetDTO, error) {
	ata, err := s.ataRepo.GetByID(ctx, ataID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAtaNotFound
		}
		return nil, fmt.Errorf("failed to get ata: %w", err)
	}

	dist := ata.FindDistribution(secretariat)
	if dist == nil {
		return nil, ErrDistributionNotFound
	}

	used, err := s.ataRepo.SumContractValues(s.db.WithContext(ctx), auth.TenantFromContext(ctx), ataID, secretariat, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sum contract values: %w", err)
	}

	dto := mapper.ToAtaBudgetDTO(dist, used)
	return &dto, nil
}

func (s *AtaService) supplierName(ctx context.Context, supplierID uuid.UUID) string {
	supplier, err := s.supplierRepo.GetByID(ctx, supplierID)
	if err != nil {
		return ""
	}
	return supplier.Name
}

// buildAtaItems validates request items and derives line and agreement totals.
func buildAtaItems(ctx context.Context, reqs []domain.AtaItemRequest) ([]domain.AtaItem, decimal.Decimal, error) {
	tenantID := auth.TenantFromContext(ctx)
	items := make([]domain.AtaItem, 0, len(reqs))
	total := decimal.Zero

	for _, req := range reqs {
		if req.Quantity.Sign() <= 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: item %q", domain.ErrInvalidQuantity, req.Description)
		}
		if req.UnitPrice.Sign() < 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: item %q has a negative unit price", domain.ErrInvalidQuantity, req.Description)
		}
		item := domain.AtaItem{
			BaseModel:   domain.BaseModel{TenantID: tenantID},
			Lote:        req.Lote,
			ItemNumber:  req.ItemNumber,
			Description: req.Description,
			Brand:       req.Brand,
			Unit:        req.Unit,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
		}
		if req.ID != nil {
			item.ID = *req.ID
		}
		item.Recompute()
		total = total.Add(item.TotalPrice)
		items = append(items, item)
	}

	return items, total, nil
}
