package service

import "errors"

// Not-found errors, mapped from gorm.ErrRecordNotFound by each service
var (
	ErrSupplierNotFound     = errors.New("supplier not found")
	ErrAtaNotFound          = errors.New("ata not found")
	ErrDistributionNotFound = errors.New("distribution not found")
	ErrContractNotFound     = errors.New("contract not found")
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrServiceOrderNotFound = errors.New("service order not found")
	ErrBankAccountNotFound  = errors.New("bank account not found")
)

// Validation errors shared across services
var (
	ErrDuplicateCNPJ           = errors.New("supplier with this CNPJ already exists")
	ErrInvalidDateRange        = errors.New("end date must not be before start date")
	ErrSecretariatRequired     = errors.New("ata-backed contracts must name a secretariat")
	ErrSupplierRequired        = errors.New("direct contracts must name a supplier")
	ErrInvoiceAlreadyPaid      = errors.New("invoice is already paid")
	ErrInvalidPercentage       = errors.New("percentage must be greater than zero")
	ErrInvalidStatusTransition = errors.New("invalid service order status transition")
)
