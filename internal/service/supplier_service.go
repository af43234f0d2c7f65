package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/auth"
	"github.com/gestao-publica/procurement-api/internal/domain"
	"github.com/gestao-publica/procurement-api/internal/mapper"
	"github.com/gestao-publica/procurement-api/internal/repository"
)

// SupplierService handles business logic for suppliers
type SupplierService struct {
	supplierRepo *repository.SupplierRepository
	logger       *zap.Logger
}

// NewSupplierService creates a new supplier service instance
func NewSupplierService(supplierRepo *repository.SupplierRepository, logger *zap.Logger) *SupplierService {
	return &SupplierService{
		supplierRepo: supplierRepo,
		logger:       logger,
	}
}

// Create creates a new supplier
func (s *SupplierService) Create(ctx context.Context, req *domain.CreateSupplierRequest) (*domain.SupplierDTO, error) {
	existing, err := s.supplierRepo.GetByCNPJ(ctx, req.CNPJ)
	if err == nil && existing != nil {
		return nil, ErrDuplicateCNPJ
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check CNPJ: %w", err)
	}

	supplier := &domain.Supplier{
		BaseModel: domain.BaseModel{TenantID: auth.TenantFromContext(ctx)},
		Name:      req.Name,
		CNPJ:      req.CNPJ,
		Phone:     req.Phone,
		Email:     req.Email,
	}

	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}

	s.logger.Info("supplier created",
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("cnpj", supplier.CNPJ),
	)

	dto := mapper.ToSupplierDTO(supplier)
	return &dto, nil
}

// GetByID retrieves a supplier by ID
func (s *SupplierService) GetByID(ctx context.Context, id uuid.UUID) (*domain.SupplierDTO, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	dto := mapper.ToSupplierDTO(supplier)
	return &dto, nil
}

// Update updates an existing supplier
func (s *SupplierService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateSupplierRequest) (*domain.SupplierDTO, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	if req.CNPJ != supplier.CNPJ {
		existing, err := s.supplierRepo.GetByCNPJ(ctx, req.CNPJ)
		if err == nil && existing != nil && existing.ID != id {
			return nil, ErrDuplicateCNPJ
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check CNPJ: %w", err)
		}
	}

	supplier.Name = req.Name
	supplier.CNPJ = req.CNPJ
	supplier.Phone = req.Phone
	supplier.Email = req.Email

	if err := s.supplierRepo.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}

	dto := mapper.ToSupplierDTO(supplier)
	return &dto, nil
}

// Delete removes a supplier. Suppliers referenced by atas or contracts
// cannot be removed.
func (s *SupplierService) Delete(ctx context.Context, id uuid.UUID) error {
	refs, err := s.supplierRepo.CountReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count supplier references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("%w: supplier is referenced by %d record(s)", domain.ErrDanglingReference, refs)
	}

	if err := s.supplierRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSupplierNotFound
		}
		return fmt.Errorf("failed to delete supplier: %w", err)
	}

	s.logger.Info("supplier deleted", zap.String("supplier_id", id.String()))
	return nil
}

// List returns suppliers with pagination
func (s *SupplierService) List(ctx context.Context, filters repository.SupplierFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	suppliers, total, err := s.supplierRepo.List(ctx, filters, sort, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	dtos := make([]domain.SupplierDTO, 0, len(suppliers))
	for i := range suppliers {
		dtos = append(dtos, mapper.ToSupplierDTO(&suppliers[i]))
	}

	return paginate(dtos, total, page, pageSize), nil
}
