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

// InvoiceService handles invoice settlement against contract item balances.
// Every mutation runs in one transaction with the contract items locked, and
// edits settle by reversing the old quantities before applying the new ones.
type InvoiceService struct {
	db              *gorm.DB
	invoiceRepo     *repository.InvoiceRepository
	contractRepo    *repository.ContractRepository
	bankAccountRepo *repository.BankAccountRepository
	logger          *zap.Logger
}

// NewInvoiceService creates a new invoice service instance
func NewInvoiceService(
	db *gorm.DB,
	invoiceRepo *repository.InvoiceRepository,
	contractRepo *repository.ContractRepository,
	bankAccountRepo *repository.BankAccountRepository,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		db:              db,
		invoiceRepo:     invoiceRepo,
		contractRepo:    contractRepo,
		bankAccountRepo: bankAccountRepo,
		logger:          logger,
	}
}

// Create records an invoice and draws its quantities from the contract item
// balances.
func (s *InvoiceService) Create(ctx context.Context, req *domain.CreateInvoiceRequest) (*domain.InvoiceDTO, error) {
	tenantID := auth.TenantFromContext(ctx)

	issueDate, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("invalid issue date: %w", err)
	}

	invoice := &domain.Invoice{
		BaseModel:  domain.BaseModel{TenantID: tenantID},
		ContractID: req.ContractID,
		Number:     req.Number,
		IssueDate:  issueDate,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contract, err := s.contractRepo.GetByIDForUpdate(tx, tenantID, req.ContractID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("failed to lock contract: %w", err)
		}

		items, err := s.settle(tx, contract, tenantID, nil, req.Items)
		if err != nil {
			return err
		}

		invoice.Items = items
		return s.invoiceRepo.CreateTx(tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("contract_id", invoice.ContractID.String()),
	)

	return s.GetByID(ctx, invoice.ID)
}

// GetByID retrieves an invoice by ID
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	contract, err := s.contractRepo.GetByID(ctx, invoice.ContractID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	dto := mapper.ToInvoiceDTO(invoice, contract)
	return &dto, nil
}

// Update edits an open invoice. The old quantities are returned to the
// contract item balances first, then the new quantities are drawn, so each
// item's effective ceiling is its balance plus what this invoice already
// held. Paid invoices are immutable.
func (s *InvoiceService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateInvoiceRequest) (*domain.InvoiceDTO, error) {
	tenantID := auth.TenantFromContext(ctx)

	issueDate, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("invalid issue date: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.GetByIDForUpdate(tx, tenantID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if invoice.IsPaid {
			return fmt.Errorf("%w: invoice %s", domain.ErrInvoiceLocked, invoice.Number)
		}

		contract, err := s.contractRepo.GetByIDForUpdate(tx, tenantID, invoice.ContractID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("failed to lock contract: %w", err)
		}

		items, err := s.settle(tx, contract, tenantID, invoice.Items, req.Items)
		if err != nil {
			return err
		}

		if err := s.invoiceRepo.ReplaceItemsTx(tx, invoice.ID, items); err != nil {
			return fmt.Errorf("failed to replace invoice items: %w", err)
		}

		invoice.Number = req.Number
		invoice.IssueDate = issueDate
		invoice.Items = nil
		return s.invoiceRepo.UpdateTx(tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice updated", zap.String("invoice_id", id.String()))
	return s.GetByID(ctx, id)
}

// Delete removes an open invoice and restores its quantities to the
// contract item balances. Paid invoices cannot be deleted.
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID := auth.TenantFromContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.GetByIDForUpdate(tx, tenantID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if invoice.IsPaid {
			return fmt.Errorf("%w: invoice %s", domain.ErrInvoiceLocked, invoice.Number)
		}

		contract, err := s.contractRepo.GetByIDForUpdate(tx, tenantID, invoice.ContractID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("failed to lock contract: %w", err)
		}

		if _, err := s.settle(tx, contract, tenantID, invoice.Items, nil); err != nil {
			return err
		}

		return s.invoiceRepo.DeleteTx(tx, tenantID, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("invoice deleted", zap.String("invoice_id", id.String()))
	return nil
}

// MarkPaid settles an invoice against a bank account. The paid amount is
// the invoice total at payment time; once paid the invoice is locked.
func (s *InvoiceService) MarkPaid(ctx context.Context, id uuid.UUID, req *domain.MarkInvoicePaidRequest) (*domain.InvoiceDTO, error) {
	tenantID := auth.TenantFromContext(ctx)

	paymentDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid payment date: %w", err)
	}

	if _, err := s.bankAccountRepo.GetByID(ctx, req.BankAccountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.GetByIDForUpdate(tx, tenantID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if invoice.IsPaid {
			return ErrInvoiceAlreadyPaid
		}

		payment := &domain.Payment{
			BaseModel:     domain.BaseModel{TenantID: tenantID},
			InvoiceID:     invoice.ID,
			Date:          paymentDate,
			BankAccountID: req.BankAccountID,
			AmountPaid:    invoice.TotalValue(),
		}
		if err := s.invoiceRepo.CreatePaymentTx(tx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		invoice.IsPaid = true
		invoice.Items = nil
		invoice.Payment = nil
		return s.invoiceRepo.UpdateTx(tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice paid",
		zap.String("invoice_id", id.String()),
		zap.String("bank_account_id", req.BankAccountID.String()),
	)

	return s.GetByID(ctx, id)
}

// List returns invoices with pagination
func (s *InvoiceService) List(ctx context.Context, filters repository.InvoiceFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	invoices, total, err := s.invoiceRepo.List(ctx, filters, sort, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	contracts := make(map[uuid.UUID]*domain.Contract)
	dtos := make([]domain.InvoiceDTO, 0, len(invoices))
	for i := range invoices {
		contract, ok := contracts[invoices[i].ContractID]
		if !ok {
			contract, err = s.contractRepo.GetByID(ctx, invoices[i].ContractID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to get contract: %w", err)
			}
			contracts[invoices[i].ContractID] = contract
		}
		dtos = append(dtos, mapper.ToInvoiceDTO(&invoices[i], contract))
	}

	return paginate(dtos, total, page, pageSize), nil
}

// settle transitions a locked contract's item balances from the old invoice
// item set to the new one: phase one returns every old quantity to its item,
// phase two draws the new quantities. A no-op edit therefore settles to the
// same balances, and any failure rolls the whole transaction back.
func (s *InvoiceService) settle(tx *gorm.DB, contract *domain.Contract, tenantID string, old []domain.InvoiceItem, reqs []domain.InvoiceItemRequest) ([]domain.InvoiceItem, error) {
	touched := make(map[uuid.UUID]bool)

	for i := range old {
		item := contract.FindItem(old[i].ContractItemID)
		if item == nil {
			return nil, fmt.Errorf("%w: contract item %s", domain.ErrDanglingReference, old[i].ContractItemID)
		}
		if err := item.ReverseConsumption(old[i].QuantityUsed); err != nil {
			return nil, err
		}
		touched[item.ID] = true
	}

	items := make([]domain.InvoiceItem, 0, len(reqs))
	for _, req := range reqs {
		item := contract.FindItem(req.ContractItemID)
		if item == nil {
			return nil, fmt.Errorf("%w: contract item %s", domain.ErrDanglingReference, req.ContractItemID)
		}
		if err := item.ApplyConsumption(req.QuantityUsed); err != nil {
			return nil, err
		}
		touched[item.ID] = true

		items = append(items, domain.InvoiceItem{
			BaseModel:      domain.BaseModel{TenantID: tenantID},
			ContractItemID: item.ID,
			QuantityUsed:   req.QuantityUsed,
			TotalValue:     domain.MoneyLine(req.QuantityUsed, item.UnitPrice),
		})
	}

	for i := range contract.Items {
		item := &contract.Items[i]
		if !touched[item.ID] {
			continue
		}
		if err := s.contractRepo.UpdateItemTx(tx, item); err != nil {
			return nil, fmt.Errorf("failed to persist item balance: %w", err)
		}
	}

	return items, nil
}
