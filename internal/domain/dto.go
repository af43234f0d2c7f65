package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for API responses. Monetary values keep their decimal representation
// on the wire; dates are ISO 8601 strings formatted by the mapper.

type SupplierDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CNPJ      string    `json:"cnpj"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt string    `json:"createdAt"` // ISO 8601
	UpdatedAt string    `json:"updatedAt"` // ISO 8601
}

type AtaDTO struct {
	ID                 uuid.UUID            `json:"id"`
	ProcessNumber      string               `json:"processNumber"`
	Modality           string               `json:"modality,omitempty"`
	Object             string               `json:"object,omitempty"`
	SupplierID         uuid.UUID            `json:"supplierId"`
	SupplierName       string               `json:"supplierName,omitempty"`
	Year               string               `json:"year"`
	TotalValue         decimal.Decimal      `json:"totalValue"`
	ReservedPercentage decimal.Decimal      `json:"reservedPercentage"`
	ReservedValue      decimal.Decimal      `json:"reservedValue"`
	Items              []AtaItemDTO         `json:"items"`
	Distributions      []AtaDistributionDTO `json:"distributions"`
	CreatedAt          string               `json:"createdAt"`
	UpdatedAt          string               `json:"updatedAt"`
}

type AtaItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	Lote        string          `json:"lote,omitempty"`
	ItemNumber  int             `json:"itemNumber"`
	Description string          `json:"description"`
	Brand       string          `json:"brand,omitempty"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

type AtaDistributionDTO struct {
	ID              uuid.UUID       `json:"id"`
	SecretariatName string          `json:"secretariatName"`
	Percentage      decimal.Decimal `json:"percentage"`
	Value           decimal.Decimal `json:"value"`
}

// AtaBudgetDTO reports the sibling-adjusted standing of one secretariat
// allocation. Used and Available are computed server-side; clients only
// display them.
type AtaBudgetDTO struct {
	AtaID       uuid.UUID       `json:"ataId"`
	Secretariat string          `json:"secretariat"`
	Allocated   decimal.Decimal `json:"allocated"`
	Used        decimal.Decimal `json:"used"`
	Available   decimal.Decimal `json:"available"`
}

type ContractDTO struct {
	ID              uuid.UUID         `json:"id"`
	Number          string            `json:"number"`
	SupplierID      uuid.UUID         `json:"supplierId"`
	SupplierName    string            `json:"supplierName,omitempty"`
	BiddingModality string            `json:"biddingModality,omitempty"`
	StartDate       string            `json:"startDate"`
	EndDate         string            `json:"endDate"`
	GlobalValue     decimal.Decimal   `json:"globalValue"`
	Origin          ContractOrigin    `json:"origin"`
	AtaID           *uuid.UUID        `json:"ataId,omitempty"`
	Secretariat     string            `json:"secretariat,omitempty"`
	Items           []ContractItemDTO `json:"items"`
	CreatedAt       string            `json:"createdAt"`
	UpdatedAt       string            `json:"updatedAt"`
}

type ContractItemDTO struct {
	ID             uuid.UUID         `json:"id"`
	Description    string            `json:"description"`
	Unit           string            `json:"unit"`
	OriginalQty    decimal.Decimal   `json:"originalQty"`
	UnitPrice      decimal.Decimal   `json:"unitPrice"`
	CurrentBalance decimal.Decimal   `json:"currentBalance"`
	State          ContractItemState `json:"state"`
}

type InvoiceDTO struct {
	ID         uuid.UUID        `json:"id"`
	ContractID uuid.UUID        `json:"contractId"`
	Number     string           `json:"number"`
	IssueDate  string           `json:"issueDate"`
	IsPaid     bool             `json:"isPaid"`
	TotalValue decimal.Decimal  `json:"totalValue"`
	Items      []InvoiceItemDTO `json:"items"`
	Payment    *PaymentDTO      `json:"payment,omitempty"`
	CreatedAt  string           `json:"createdAt"`
	UpdatedAt  string           `json:"updatedAt"`
}

type InvoiceItemDTO struct {
	ID             uuid.UUID       `json:"id"`
	ContractItemID uuid.UUID       `json:"contractItemId"`
	Description    string          `json:"description,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	QuantityUsed   decimal.Decimal `json:"quantityUsed"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	// MaxQuantity is the editable ceiling for this item while the invoice is
	// open: contract balance plus this invoice's own committed quantity.
	MaxQuantity decimal.Decimal `json:"maxQuantity"`
}

type PaymentDTO struct {
	ID            uuid.UUID       `json:"id"`
	Date          string          `json:"date"`
	BankAccountID uuid.UUID       `json:"bankAccountId"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
}

type BankAccountDTO struct {
	ID          uuid.UUID `json:"id"`
	Bank        string    `json:"bank"`
	Agency      string    `json:"agency"`
	Account     string    `json:"account"`
	Description string    `json:"description,omitempty"`
	Secretariat string    `json:"secretariat,omitempty"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
}

type ServiceOrderDTO struct {
	ID          uuid.UUID             `json:"id"`
	Number      string                `json:"number"`
	ContractID  uuid.UUID             `json:"contractId"`
	IssueDate   string                `json:"issueDate"`
	Description string                `json:"description"`
	Status      ServiceOrderStatus    `json:"status"`
	TotalValue  decimal.Decimal       `json:"totalValue"`
	Items       []ServiceOrderItemDTO `json:"items"`
	CreatedAt   string                `json:"createdAt"`
	UpdatedAt   string                `json:"updatedAt"`
}

type ServiceOrderItemDTO struct {
	ID             uuid.UUID       `json:"id"`
	ContractItemID uuid.UUID       `json:"contractItemId"`
	Description    string          `json:"description,omitempty"`
	Unit           string          `json:"unit,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Total          decimal.Decimal `json:"total"`
}

// DashboardMetricsDTO aggregates ledger totals for the landing page.
type DashboardMetricsDTO struct {
	Suppliers         int64           `json:"suppliers"`
	Atas              int64           `json:"atas"`
	Contracts         int64           `json:"contracts"`
	ExpiringContracts int64           `json:"expiringContracts"`
	OpenInvoices      int64           `json:"openInvoices"`
	PaidInvoices      int64           `json:"paidInvoices"`
	PendingValue      decimal.Decimal `json:"pendingValue"`
	PaidValue         decimal.Decimal `json:"paidValue"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PaginatedResponse wraps list results with paging metadata
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// ---- Requests ----
// Quantities and prices are decoded as decimals directly from JSON so no
// float64 conversion ever touches ledger arithmetic. Range checks that
// involve decimals live in the services.

type CreateSupplierRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	CNPJ  string `json:"cnpj" validate:"required,max=20"`
	Phone string `json:"phone,omitempty" validate:"max=50"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type UpdateSupplierRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	CNPJ  string `json:"cnpj" validate:"required,max=20"`
	Phone string `json:"phone,omitempty" validate:"max=50"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

type AtaItemRequest struct {
	ID          *uuid.UUID      `json:"id,omitempty"`
	Lote        string          `json:"lote,omitempty" validate:"max=50"`
	ItemNumber  int             `json:"itemNumber"`
	Description string          `json:"description" validate:"required"`
	Brand       string          `json:"brand,omitempty" validate:"max=200"`
	Unit        string          `json:"unit" validate:"required,max=50"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type CreateAtaRequest struct {
	ProcessNumber string           `json:"processNumber" validate:"required,max=100"`
	Modality      string           `json:"modality,omitempty" validate:"max=100"`
	Object        string           `json:"object,omitempty"`
	SupplierID    uuid.UUID        `json:"supplierId" validate:"required"`
	Year          string           `json:"year" validate:"required,len=4,numeric"`
	Items         []AtaItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateAtaRequest struct {
	ProcessNumber string           `json:"processNumber" validate:"required,max=100"`
	Modality      string           `json:"modality,omitempty" validate:"max=100"`
	Object        string           `json:"object,omitempty"`
	SupplierID    uuid.UUID        `json:"supplierId" validate:"required"`
	Year          string           `json:"year" validate:"required,len=4,numeric"`
	Items         []AtaItemRequest `json:"items" validate:"required,min=1,dive"`
}

type AddDistributionRequest struct {
	SecretariatName string          `json:"secretariatName" validate:"required,max=200"`
	Percentage      decimal.Decimal `json:"percentage"`
}

type ContractItemRequest struct {
	ID          *uuid.UUID      `json:"id,omitempty"`
	Description string          `json:"description" validate:"required"`
	Unit        string          `json:"unit" validate:"required,max=50"`
	OriginalQty decimal.Decimal `json:"originalQty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type CreateContractRequest struct {
	Number string `json:"number" validate:"required,max=100"`
	// SupplierID may be omitted for ata-backed contracts, in which case the
	// ata's winning supplier is used.
	SupplierID uuid.UUID `json:"supplierId,omitempty"`
	BiddingModality string                `json:"biddingModality,omitempty" validate:"max=100"`
	StartDate       string                `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate         string                `json:"endDate" validate:"required,datetime=2006-01-02"`
	AtaID           *uuid.UUID            `json:"ataId,omitempty"`
	Secretariat     string                `json:"secretariat,omitempty" validate:"max=200"`
	Items           []ContractItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateContractRequest struct {
	Number          string                `json:"number" validate:"required,max=100"`
	SupplierID      uuid.UUID             `json:"supplierId" validate:"required"`
	BiddingModality string                `json:"biddingModality,omitempty" validate:"max=100"`
	StartDate       string                `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate         string                `json:"endDate" validate:"required,datetime=2006-01-02"`
	AtaID           *uuid.UUID            `json:"ataId,omitempty"`
	Secretariat     string                `json:"secretariat,omitempty" validate:"max=200"`
	Items           []ContractItemRequest `json:"items" validate:"required,min=1,dive"`
}

type InvoiceItemRequest struct {
	ContractItemID uuid.UUID       `json:"contractItemId" validate:"required"`
	QuantityUsed   decimal.Decimal `json:"quantityUsed"`
}

type CreateInvoiceRequest struct {
	ContractID uuid.UUID            `json:"contractId" validate:"required"`
	Number     string               `json:"number" validate:"required,max=100"`
	IssueDate  string               `json:"issueDate" validate:"required,datetime=2006-01-02"`
	Items      []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateInvoiceRequest struct {
	Number    string               `json:"number" validate:"required,max=100"`
	IssueDate string               `json:"issueDate" validate:"required,datetime=2006-01-02"`
	Items     []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type MarkInvoicePaidRequest struct {
	BankAccountID uuid.UUID `json:"bankAccountId" validate:"required"`
	Date          string    `json:"date" validate:"required,datetime=2006-01-02"`
}

type CreateBankAccountRequest struct {
	Bank        string `json:"bank" validate:"required,max=200"`
	Agency      string `json:"agency" validate:"required,max=50"`
	Account     string `json:"account" validate:"required,max=50"`
	Description string `json:"description,omitempty" validate:"max=500"`
	Secretariat string `json:"secretariat,omitempty" validate:"max=200"`
}

type ServiceOrderItemRequest struct {
	ContractItemID uuid.UUID       `json:"contractItemId" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
}

type CreateServiceOrderRequest struct {
	ContractID  uuid.UUID                 `json:"contractId" validate:"required"`
	IssueDate   string                    `json:"issueDate" validate:"required,datetime=2006-01-02"`
	Description string                    `json:"description" validate:"required"`
	Items       []ServiceOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}
