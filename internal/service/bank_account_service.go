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

// BankAccountService handles business logic for municipal bank accounts
type BankAccountService struct {
	bankAccountRepo *repository.BankAccountRepository
	invoiceRepo     *repository.InvoiceRepository
	logger          *zap.Logger
}

// NewBankAccountService creates a new bank account service instance
func NewBankAccountService(
	bankAccountRepo *repository.BankAccountRepository,
	invoiceRepo *repository.InvoiceRepository,
	logger *zap.Logger,
) *BankAccountService {
	return &BankAccountService{
		bankAccountRepo: bankAccountRepo,
		invoiceRepo:     invoiceRepo,
		logger:          logger,
	}
}

// Create creates a new bank account
func (s *BankAccountService) Create(ctx context.Context, req *domain.CreateBankAccountRequest) (*domain.BankAccountDTO, error) {
	account := &domain.BankAccount{
		BaseModel:   domain.BaseModel{TenantID: auth.TenantFromContext(ctx)},
		Bank:        req.Bank,
		Agency:      req.Agency,
		Account:     req.Account,
		Description: req.Description,
		Secretariat: req.Secretariat,
	}

	if err := s.bankAccountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create bank account: %w", err)
	}

	s.logger.Info("bank account created", zap.String("bank_account_id", account.ID.String()))

	dto := mapper.ToBankAccountDTO(account)
	return &dto, nil
}

// GetByID retrieves a bank account by ID
func (s *BankAccountService) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankAccountDTO, error) {
	account, err := s.bankAccountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	dto := mapper.ToBankAccountDTO(account)
	return &dto, nil
}

// Update updates an existing bank account
func (s *BankAccountService) Update(ctx context.Context, id uuid.UUID, req *domain.CreateBankAccountRequest) (*domain.BankAccountDTO, error) {
	account, err := s.bankAccountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}

	account.Bank = req.Bank
	account.Agency = req.Agency
	account.Account = req.Account
	account.Description = req.Description
	account.Secretariat = req.Secretariat

	if err := s.bankAccountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update bank account: %w", err)
	}

	dto := mapper.ToBankAccountDTO(account)
	return &dto, nil
}

// Delete removes a bank account. Accounts with recorded payments cannot be
// removed.
func (s *BankAccountService) Delete(ctx context.Context, id uuid.UUID) error {
	payments, err := s.invoiceRepo.CountPaymentsForBankAccount(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count payments: %w", err)
	}
	if payments > 0 {
		return fmt.Errorf("%w: bank account has %d payment(s)", domain.ErrDanglingReference, payments)
	}

	if err := s.bankAccountRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBankAccountNotFound
		}
		return fmt.Errorf("failed to delete bank account: %w", err)
	}

	s.logger.Info("bank account deleted", zap.String("bank_account_id", id.String()))
	return nil
}

// List returns bank accounts with pagination
func (s *BankAccountService) List(ctx context.Context, filters repository.BankAccountFilters, sort repository.SortConfig, page, pageSize int) (*domain.PaginatedResponse, error) {
	accounts, total, err := s.bankAccountRepo.List(ctx, filters, sort, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}

	dtos := make([]domain.BankAccountDTO, 0, len(accounts))
	for i := range accounts {
		dtos = append(dtos, mapper.ToBankAccountDTO(&accounts[i]))
	}

	return paginate(dtos, total, page, pageSize), nil
}
