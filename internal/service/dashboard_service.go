package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gestao-publica/procurement-api/internal/domain"
	"github.com/gestao-publica/procurement-api/internal/repository"
)

// DashboardService aggregates ledger metrics for the landing page
type DashboardService struct {
	supplierRepo *repository.SupplierRepository
	ataRepo      *repository.AtaRepository
	contractRepo *repository.ContractRepository
	invoiceRepo  *repository.InvoiceRepository
	expiryWindow time.Duration
	logger       *zap.Logger
}

// NewDashboardService creates a new dashboard service instance
func NewDashboardService(
	supplierRepo *repository.SupplierRepository,
	ataRepo *repository.AtaRepository,
	contractRepo *repository.ContractRepository,
	invoiceRepo *repository.InvoiceRepository,
	expiryDays int,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		supplierRepo: supplierRepo,
		ataRepo:      ataRepo,
		contractRepo: contractRepo,
		invoiceRepo:  invoiceRepo,
		expiryWindow: time.Duration(expiryDays) * 24 * time.Hour,
		logger:       logger,
	}
}

// GetMetrics returns entity counts and invoice value totals for the tenant
func (s *DashboardService) GetMetrics(ctx context.Context) (*domain.DashboardMetricsDTO, error) {
	metrics := &domain.DashboardMetricsDTO{}
	var err error

	if metrics.Suppliers, err = s.supplierRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count suppliers: %w", err)
	}
	if metrics.Atas, err = s.ataRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count atas: %w", err)
	}
	if metrics.Contracts, err = s.contractRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}
	if metrics.ExpiringContracts, err = s.contractRepo.CountExpiring(ctx, s.expiryWindow); err != nil {
		return nil, fmt.Errorf("failed to count expiring contracts: %w", err)
	}
	if metrics.OpenInvoices, err = s.invoiceRepo.CountByPaidStatus(ctx, false); err != nil {
		return nil, fmt.Errorf("failed to count open invoices: %w", err)
	}
	if metrics.PaidInvoices, err = s.invoiceRepo.CountByPaidStatus(ctx, true); err != nil {
		return nil, fmt.Errorf("failed to count paid invoices: %w", err)
	}
	if metrics.PendingValue, err = s.invoiceRepo.SumValueByPaidStatus(ctx, false); err != nil {
		return nil, fmt.Errorf("failed to sum pending value: %w", err)
	}
	if metrics.PaidValue, err = s.invoiceRepo.SumValueByPaidStatus(ctx, true); err != nil {
		return nil, fmt.Errorf("failed to sum paid value: %w", err)
	}

	return metrics, nil
}

// ListExpiringContracts returns contracts ending within the expiry window
func (s *DashboardService) ListExpiringContracts(ctx context.Context) ([]domain.Contract, error) {
	return s.contractRepo.ListExpiring(ctx, s.expiryWindow)
}
