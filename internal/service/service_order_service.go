package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/auth"
	"github.com/gestao-publica/procurement-api/internal/domain"
	"github.com/gestao-publica/procurement-api/internal/mapper"
	"github.com/gestao-publica/procurement-api/internal/repository"
)

// ServiceOrderService handles business logic for service orders. Orders are
// numbered sequentially per tenant and year ("001/2026") and snapshot contract
// item prices without moving any balance.
type ServiceOrderService struct {
	db           *gorm.DB
	orderRepo    *repository.ServiceOrderRepository
	contractRepo *repository.ContractRepository
	sequenceRepo *repository.NumberSequenceRepository
	logger       *zap.Logger
}

// NewServiceOrderService creates a new service order service instance
func NewServiceOrderService(
	db *gorm.DB,
	orderRepo *repository.ServiceOrderRepository,
	contractRepo *repository.ContractRepository,
	sequenceRepo *repository.NumberSequenceRepository,
	logger *zap.Logger,
) *ServiceOrderService {
	return &ServiceOrderService{
		db:           db,
		orderRepo:    orderRepo,
		contractRepo: contractRepo,
		sequenceRepo: sequenceRepo,
		logger:       logger,
	}
}

// Create issues a new service order against a contract
func (s *ServiceOrderService) Create(ctx context.Context, req *domain.CreateServiceOrderRequest) (*domain.ServiceOrderDTO, error) {
	tenantID := auth.TenantFromContext(ctx)

	issueDate, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("invalid issue date: %w", err)
	}

	contract, err := s.contractRepo.GetByID(ctx, req.ContractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	items := make([]domain.ServiceOrderItem, 0, len(req.Items))
	for _, itemReq := range req.Items {
		contractItem := contract.FindItem(itemReq.ContractItemID)
		if contractItem == nil {
			return nil, fmt.Errorf("%w: contract item %s", domain.ErrDanglingReference, itemReq.ContractItemID)
		}
		if itemReq.Quantity.Sign() <= 0 {
			return nil, fmt.Errorf("%w: item %q", domain.ErrInvalidQuantity, contractItem.Description)
		}
		items = append(items, domain.ServiceOrderItem{
			BaseModel:      domain.BaseModel{TenantID: tenantID},
			ContractItemID: contractItem.ID,
			Quantity:       itemReq.Quantity,
			UnitPrice:      contractItem.UnitPrice,
			Total:          domain.MoneyLine(itemReq.Quantity, contractItem.UnitPrice),
		})
	}

	order := &domain.ServiceOrder{
		BaseModel:   domain.BaseModel{TenantID: tenantID},
		ContractID:  req.ContractID,
		IssueDate:   issueDate,
		Description: req.Description,
		Status:      domain.ServiceOrderOpen,
		Items:       items,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := s.sequenceRepo.NextNumberTx(tx, tenantID, issueDate.Year())
		if err != nil {
			return err
		}
		order.Number = fmt.Sprintf("%03d/%d", next, issueDate.Year())
		return s.orderRepo.CreateTx(tx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create service order: %w", err)
	}

	s.logger.Info("service order created",
		zap.String("service_order_id", order.ID.String()),
		zap.String("number", order.Number),
		zap.String("contract_id", order.ContractID.String()),
	)

	dto := mapper.ToServiceOrderDTO(order, contract)
	return &dto, nil
}

// GetByID retrieves a service order by ID
func (s *ServiceOrderService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceOrderDTO, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceOrderNotFound
		}
		return nil, fmt.Errorf("failed to get service order: %w", err)
	}

	contract, err := s.contractRepo.GetByID(ctx, order.ContractID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	dto := mapper.ToServiceOrderDTO(order, contract)
	return &dto, nil
}

// UpdateStatus transitions a service order. Open orders can be completed or
// cancelled; completed and cancelled orders are final.
func (s *ServiceOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ServiceOrderStatus) (*domain.ServiceOrderDTO, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatusTransition
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceOrderNotFound
		}
		return nil, fmt.Errorf("failed to get service order: %w", err)
	}

	if order.Status != domain.ServiceOrderOpen && order.Status != status {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, status)
	}

	order.Status = status
	order.Items = nil
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update service order: %w", err)
	}

	s.logger.Info("service order status updated",
		zap.String("service_order_id", id.String()),
		zap.String("status", string(status)),
	)

	return s.GetByID(ctx, id)
}

// Delete removes a service order. Only cancelled orders can be removed.
func (s *ServiceOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceOrderNotFound
		}
		return fmt.Errorf("failed to get service order: %w", err)
	}

	if order.Status != domain.ServiceOrderCancelled {
		return fmt.Errorf("%w: only cancelled orders can be deleted", ErrInvalidStatusTransition)
	}

	if err := s.orderRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceOrderNotFound
		}
		return fmt.Errorf("failed to delete service order: %w", err)
	}

	s.logger.Info("service order deleted", zap.String("service_order_id", id.String()))
	return nil
}

// List returns service orders with pagination
func (s *ServiceOrderService) List(ctx context.Context, filters repository.ServiceOrderFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	orders, total, err := s.orderRepo.List(ctx, filters, sort, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list service orders: %w", err)
	}

	contracts := make(map[uuid.UUID]*domain.Contract)
	dtos := make([]domain.ServiceOrderDTO, 0, len(orders))
	for i := range orders {
		contract, ok := contracts[orders[i].ContractID]
		if !ok {
			contract, err = s.contractRepo.GetByID(ctx, orders[i].ContractID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to get contract: %w", err)
			}
			contracts[orders[i].ContractID] = contract
		}
		dtos = append(dtos, mapper.ToServiceOrderDTO(&orders[i], contract))
	}

	return paginate(dtos, total, page, pageSize), nil
}
