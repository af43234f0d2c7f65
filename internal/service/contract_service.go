package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/auth"
	"github.com/gestao-publica/procurement-api/internal/domain"
	"github.com/gestao-publica/procurement-api/internal/mapper"
	"github.com/gestao-publica/procurement-api/internal/repository"
)

// ContractService handles business logic for contracts, including the
// budget guard against ata allocations and contract item balance
// reconciliation on edits.
type ContractService struct {
	db           *gorm.DB
	contractRepo *repository.ContractRepository
	ataRepo      *repository.AtaRepository
	supplierRepo *repository.SupplierRepository
	logger       *zap.Logger
}

// NewContractService creates a new contract service instance
func NewContractService(
	db *gorm.DB,
	contractRepo *repository.ContractRepository,
	ataRepo *repository.AtaRepository,
	supplierRepo *repository.SupplierRepository,
	logger *zap.Logger,
) *ContractService {
	return &ContractService{
		db:           db,
		contractRepo: contractRepo,
		ataRepo:      ataRepo,
		supplierRepo: supplierRepo,
		logger:       logger,
	}
}

// Create creates a new contract. For ata-backed contracts the global value
// is checked against the secretariat's allocation net of sibling contracts
// before anything is written.
func (s *ContractService) Create(ctx context.Context, req *domain.CreateContractRequest) (*domain.ContractDTO, error) {
	tenantID := auth.TenantFromContext(ctx)

	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	if req.AtaID != nil && req.Secretariat == "" {
		return nil, ErrSecretariatRequired
	}

	supplierID := req.SupplierID
	if supplierID == uuid.Nil {
		if req.AtaID == nil {
			return nil, ErrSupplierRequired
		}
		ata, err := s.ataRepo.GetByID(ctx, *req.AtaID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAtaNotFound
			}
			return nil, fmt.Errorf("failed to get ata: %w", err)
		}
		supplierID = ata.SupplierID
	}

	if _, err := s.supplierRepo.GetByID(ctx, supplierID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: supplier %s", ErrSupplierNotFound, supplierID)
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	items, globalValue, err := buildContractItems(tenantID, req.Items)
	if err != nil {
		return nil, err
	}

	contract := &domain.Contract{
		BaseModel:       domain.BaseModel{TenantID: tenantID},
		Number:          req.Number,
		SupplierID:      supplierID,
		BiddingModality: req.BiddingModality,
		StartDate:       startDate,
		EndDate:         endDate,
		GlobalValue:     globalValue,
		AtaID:           req.AtaID,
		Secretariat:     req.Secretariat,
		Items:           items,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.AtaID != nil {
			if err := s.checkBudget(tx, tenantID, *req.AtaID, req.Secretariat, globalValue, nil); err != nil {
				return err
			}
		}
		return s.contractRepo.CreateTx(tx, contract)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contract created",
		zap.String("contract_id", contract.ID.String()),
		zap.String("number", contract.Number),
		zap.String("global_value", contract.GlobalValue.String()),
		zap.String("origin", string(contract.Origin())),
	)

	dto := mapper.ToContractDTO(contract, s.supplierName(ctx, contract.SupplierID))
	return &dto, nil
}

// GetByID retrieves a contract by ID
func (s *ContractService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContractDTO, error) {
	contract, err := s.contractRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	dto := mapper.ToContractDTO(contract, s.supplierName(ctx, contract.SupplierID))
	return &dto, nil
}

// Update updates a contract. Item quantity changes shift item balances by
// the delta so quantities already invoiced stay accounted for, and the new
// global value passes the budget guard with this contract excluded from the
// sibling sum.
func (s *ContractService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateContractRequest) (*domain.ContractDTO, error) {
	tenantID := auth.TenantFromContext(ctx)

	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.AtaID != nil && req.Secretariat == "" {
		return nil, ErrSecretariatRequired
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := s.contractRepo.GetByIDForUpdate(tx, tenantID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("failed to lock contract: %w", err)
		}

		globalValue, err := s.reconcileItems(tx, contract, req.Items)
		if err != nil {
			return err
		}

		if req.AtaID != nil {
			if err := s.checkBudget(tx, tenantID, *req.AtaID, req.Secretariat, globalValue, &contract.ID); err != nil {
				return err
			}
		}

		contract.Number = req.Number
		contract.SupplierID = req.SupplierID
		contract.BiddingModality = req.BiddingModality
		contract.StartDate = startDate
		contract.EndDate = endDate
		contract.GlobalValue = globalValue
		contract.AtaID = req.AtaID
		contract.Secretariat = req.Secretariat
		contract.Items = nil

		return s.contractRepo.UpdateTx(tx, contract)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// Delete removes a contract. Contracts with invoices or service orders
// cannot be removed.
func (s *ContractService) Delete(ctx context.Context, id uuid.UUID) error {
	invoices, err := s.contractRepo.CountInvoices(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count invoices: %w", err)
	}
	if invoices > 0 {
		return fmt.Errorf("%w: contract has %d invoice(s)", domain.ErrDanglingReference, invoices)
	}

	orders, err := s.contractRepo.CountServiceOrders(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count service orders: %w", err)
	}
	if orders > 0 {
		return fmt.Errorf("%w: contract has %d service order(s)", domain.ErrDanglingReference, orders)
	}

	if err := s.contractRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContractNotFound
		}
		return fmt.Errorf("failed to delete contract: %w", err)
	}

	s.logger.Info("contract deleted", zap.String("contract_id", id.String()))
	return nil
}

// List returns contracts with pagination
func (s *ContractService) List(ctx context.Context, filters repository.ContractFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	contracts, total, err := s.contractRepo.List(ctx, filters, sort, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	dtos := make([]domain.ContractDTO, 0, len(contracts))
	for i := range contracts {
		dtos = append(dtos, mapper.ToContractDTO(&contracts[i], s.supplierName(ctx, contracts[i].SupplierID)))
	}

	return paginate(dtos, total, page, pageSize), nil
}

// checkBudget enforces the allocation ceiling for ata-backed contracts:
// requested value must not exceed the secretariat's distribution value minus
// the global values of sibling contracts on the same ata/secretariat pair.
// Runs inside the caller's transaction with the ata row locked.
func (s *ContractService) checkBudget(tx *gorm.DB, tenantID string, ataID uuid.UUID, secretariat string, requested decimal.Decimal, excludeContractID *uuid.UUID) error {
	ata, err := s.ataRepo.GetByIDForUpdate(tx, tenantID, ataID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: ata %s", ErrAtaNotFound, ataID)
		}
		return fmt.Errorf("failed to lock ata: %w", err)
	}

	dist := ata.FindDistribution(secretariat)
	if dist == nil {
		return fmt.Errorf("%w: ata %s has no share for secretariat %q",
			domain.ErrDanglingReference, ataID, secretariat)
	}

	used, err := s.ataRepo.SumContractValues(tx, tenantID, ataID, secretariat, excludeContractID)
	if err != nil {
		return fmt.Errorf("failed to sum sibling contracts: %w", err)
	}

	available := dist.Value.Sub(used)
	if requested.GreaterThan(available) {
		return &domain.BudgetExceededError{
			Secretariat: secretariat,
			Available:   available,
			Requested:   requested,
		}
	}
	return nil
}

// reconcileItems applies an item edit set to a locked contract: existing
// items shift their balances by the quantity delta, new items start with a
// full balance, and items already invoiced cannot be dropped. Returns the
// new global value.
func (s *ContractService) reconcileItems(tx *gorm.DB, contract *domain.Contract, reqs []domain.ContractItemRequest) (decimal.Decimal, error) {
	keep := make(map[uuid.UUID]bool, len(reqs))
	globalValue := decimal.Zero

	for _, req := range reqs {
		if req.OriginalQty.Sign() <= 0 {
			return decimal.Zero, fmt.Errorf("%w: item %q", domain.ErrInvalidQuantity, req.Description)
		}
		if req.UnitPrice.Sign() < 0 {
			return decimal.Zero, fmt.Errorf("%w: item %q has a negative unit price", domain.ErrInvalidQuantity, req.Description)
		}

		if req.ID != nil {
			item := contract.FindItem(*req.ID)
			if item == nil {
				return decimal.Zero, fmt.Errorf("%w: contract item %s", domain.ErrDanglingReference, *req.ID)
			}
			keep[item.ID] = true

			if !req.OriginalQty.Equal(item.OriginalQty) {
				if err := item.ReconcileOnItemEdit(req.OriginalQty); err != nil {
					return decimal.Zero, err
				}
			}
			item.Description = req.Description
			item.Unit = req.Unit
			item.UnitPrice = req.UnitPrice

			if err := s.contractRepo.UpdateItemTx(tx, item); err != nil {
				return decimal.Zero, fmt.Errorf("failed to update contract item: %w", err)
			}
			globalValue = globalValue.Add(item.Subtotal())
			continue
		}

		item := &domain.ContractItem{
			BaseModel:      domain.BaseModel{TenantID: contract.TenantID},
			ContractID:     contract.ID,
			Description:    req.Description,
			Unit:           req.Unit,
			OriginalQty:    req.OriginalQty,
			UnitPrice:      req.UnitPrice,
			CurrentBalance: req.OriginalQty,
		}
		if err := s.contractRepo.CreateItemTx(tx, item); err != nil {
			return decimal.Zero, fmt.Errorf("failed to create contract item: %w", err)
		}
		globalValue = globalValue.Add(item.Subtotal())
	}

	for i := range contract.Items {
		item := &contract.Items[i]
		if keep[item.ID] {
			continue
		}
		refs, err := s.contractRepo.CountInvoiceReferences(tx, item.ID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to count invoice references: %w", err)
		}
		if refs > 0 {
			return decimal.Zero, fmt.Errorf("%w: item %q appears on %d invoice(s)",
				domain.ErrDanglingReference, item.Description, refs)
		}
		if err := s.contractRepo.DeleteItemTx(tx, item.ID); err != nil {
			return decimal.Zero, fmt.Errorf("failed to delete contract item: %w", err)
		}
	}

	return globalValue, nil
}

func (s *ContractService) supplierName(ctx context.Context, supplierID uuid.UUID) string {
	supplier, err := s.supplierRepo.GetByID(ctx, supplierID)
	if err != nil {
		return ""
	}
	return supplier.Name
}

// buildContractItems validates request items and derives the global value.
// Every item starts with its full contracted quantity as balance.
func buildContractItems(tenantID string, reqs []domain.ContractItemRequest) ([]domain.ContractItem, decimal.Decimal, error) {
	items := make([]domain.ContractItem, 0, len(reqs))
	globalValue := decimal.Zero

	for _, req := range reqs {
		if req.OriginalQty.Sign() <= 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: item %q", domain.ErrInvalidQuantity, req.Description)
		}
		if req.UnitPrice.Sign() < 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: item %q has a negative unit price", domain.ErrInvalidQuantity, req.Description)
		}
		item := domain.ContractItem{
			BaseModel:      domain.BaseModel{TenantID: tenantID},
			Description:    req.Description,
			Unit:           req.Unit,
			OriginalQty:    req.OriginalQty,
			UnitPrice:      req.UnitPrice,
			CurrentBalance: req.OriginalQty,
		}
		globalValue = globalValue.Add(item.Subtotal())
		items = append(items, item)
	}

	return items, globalValue, nil
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
	}
	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
	}
	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return startDate, endDate, nil
}
