package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  string    `gorm:"type:varchar(100);not null;index;column:tenant_id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// Supplier represents a vendor registered with the municipality
type Supplier struct {
	BaseModel
	Name  string `gorm:"type:varchar(200);not null;index"`
	CNPJ  string `gorm:"type:varchar(20);not null;index;column:cnpj"`
	Phone string `gorm:"type:varchar(50)"`
	Email string `gorm:"type:varchar(255)"`
}

// Ata represents a framework price-registration agreement. Unit prices are
// fixed here and later drawn down by contracts; the total value is always
// derived from the items, never edited directly.
type Ata struct {
	BaseModel
	ProcessNumber      string            `gorm:"type:varchar(100);not null;index;column:process_number"`
	Modality           string            `gorm:"type:varchar(100)"`
	Object             string            `gorm:"type:text"`
	SupplierID         uuid.UUID         `gorm:"type:uuid;not null;index;column:supplier_id"`
	Supplier           *Supplier         `gorm:"foreignKey:SupplierID"`
	Year               string            `gorm:"type:varchar(4);not null"`
	TotalValue         decimal.Decimal   `gorm:"type:decimal(15,2);not null;default:0;column:total_value"`
	ReservedPercentage decimal.Decimal   `gorm:"type:decimal(6,2);not null;default:100;column:reserved_percentage"`
	Items              []AtaItem         `gorm:"foreignKey:AtaID;constraint:OnDelete:CASCADE"`
	Distributions      []AtaDistribution `gorm:"foreignKey:AtaID;constraint:OnDelete:CASCADE"`
}

// ReservedValue returns the monetary share of the Ata not yet allocated
// to any secretariat.
func (a *Ata) ReservedValue() decimal.Decimal {
	return MoneyShare(a.TotalValue, a.ReservedPercentage)
}

// FindDistribution returns the distribution for a secretariat, or nil.
func (a *Ata) FindDistribution(secretariat string) *AtaDistribution {
	for i := range a.Distributions {
		if a.Distributions[i].SecretariatName == secretariat {
			return &a.Distributions[i]
		}
	}
	return nil
}

// AtaItem is a priced line of an Ata. TotalPrice is derived from
// quantity and unit price and must be recomputed together with any edit.
type AtaItem struct {
	BaseModel
	AtaID       uuid.UUID       `gorm:"type:uuid;not null;index;column:ata_id"`
	Lote        string          `gorm:"type:varchar(50)"`
	ItemNumber  int             `gorm:"not null;default:0;column:item_number"`
	Description string          `gorm:"type:text;not null"`
	Brand       string          `gorm:"type:varchar(200)"`
	Unit        string          `gorm:"type:varchar(50);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(15,2);not null;column:unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(15,2);not null;column:total_price"`
}

// Recompute re-derives the item total from quantity and unit price.
func (i *AtaItem) Recompute() {
	i.TotalPrice = MoneyLine(i.Quantity, i.UnitPrice)
}

// AtaDistribution earmarks a percentage share of an Ata's total value for a
// named secretariat. Value is derived and re-computed whenever the Ata's
// total changes.
type AtaDistribution struct {
	BaseModel
	AtaID           uuid.UUID       `gorm:"type:uuid;not null;index;column:ata_id"`
	SecretariatName string          `gorm:"type:varchar(200);not null;column:secretariat_name"`
	Percentage      decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	Value           decimal.Decimal `gorm:"type:decimal(15,2);not null"`
}

// ContractOrigin distinguishes contracts drawn from an Ata allocation
// from directly bid contracts.
type ContractOrigin string

const (
	ContractOriginDirect ContractOrigin = "direct"
	ContractOriginAta    ContractOrigin = "ata"
)

// Contract represents a supply contract. GlobalValue is derived from the
// items; for ata-origin contracts it is capped by the secretariat's
// allocation on the referenced Ata.
type Contract struct {
	BaseModel
	Number          string          `gorm:"type:varchar(100);not null;index"`
	SupplierID      uuid.UUID       `gorm:"type:uuid;not null;index;column:supplier_id"`
	Supplier        *Supplier       `gorm:"foreignKey:SupplierID"`
	BiddingModality string          `gorm:"type:varchar(100);column:bidding_modality"`
	StartDate       time.Time       `gorm:"type:date;not null;column:start_date"`
	EndDate         time.Time       `gorm:"type:date;not null;column:end_date"`
	GlobalValue     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0;column:global_value"`
	AtaID           *uuid.UUID      `gorm:"type:uuid;index;column:ata_id"`
	Ata             *Ata            `gorm:"foreignKey:AtaID"`
	Secretariat     string          `gorm:"type:varchar(200)"`
	Items           []ContractItem  `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
}

// Origin reports whether the contract draws on an Ata allocation.
func (c *Contract) Origin() ContractOrigin {
	if c.AtaID != nil {
		return ContractOriginAta
	}
	return ContractOriginDirect
}

// FindItem returns the contract item with the given id, or nil.
func (c *Contract) FindItem(id uuid.UUID) *ContractItem {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i]
		}
	}
	return nil
}

// ContractItemState is derived from the remaining balance.
type ContractItemState string

const (
	ContractItemActive    ContractItemState = "active"
	ContractItemExhausted ContractItemState = "exhausted"
)

// ContractItem is a contracted line with a quantity ledger: OriginalQty is
// what was contracted, CurrentBalance what remains undrawn. The invariant
// 0 <= CurrentBalance <= OriginalQty holds at rest; only the settlement
// engine moves the balance.
type ContractItem struct {
	BaseModel
	ContractID     uuid.UUID       `gorm:"type:uuid;not null;index;column:contract_id"`
	Description    string          `gorm:"type:text;not null"`
	Unit           string          `gorm:"type:varchar(50);not null"`
	OriginalQty    decimal.Decimal `gorm:"type:decimal(12,3);not null;column:original_qty"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(15,2);not null;column:unit_price"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(12,3);not null;column:current_balance"`
}

// State reports whether the item still has undrawn balance.
func (i *ContractItem) State() ContractItemState {
	if i.CurrentBalance.IsZero() {
		return ContractItemExhausted
	}
	return ContractItemActive
}

// Subtotal returns originalQty x unitPrice, the item's share of the
// contract's global value.
func (i *ContractItem) Subtotal() decimal.Decimal {
	return MoneyLine(i.OriginalQty, i.UnitPrice)
}

// Invoice (nota fiscal) settles quantities against a contract. Once paid it
// is immutable and cannot be deleted.
type Invoice struct {
	BaseModel
	ContractID uuid.UUID     `gorm:"type:uuid;not null;index;column:contract_id"`
	Contract   *Contract     `gorm:"foreignKey:ContractID"`
	Number     string        `gorm:"type:varchar(100);not null;index"`
	IssueDate  time.Time     `gorm:"type:date;not null;column:issue_date"`
	IsPaid     bool          `gorm:"not null;default:false;column:is_paid"`
	Items      []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Payment    *Payment      `gorm:"foreignKey:InvoiceID"`
}

// QuantityFor returns the quantity this invoice already committed against a
// contract item. Zero when the item is not on the invoice.
func (inv *Invoice) QuantityFor(contractItemID uuid.UUID) decimal.Decimal {
	for i := range inv.Items {
		if inv.Items[i].ContractItemID == contractItemID {
			return inv.Items[i].QuantityUsed
		}
	}
	return decimal.Zero
}

// TotalValue sums the invoice's item values.
func (inv *Invoice) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for i := range inv.Items {
		total = total.Add(inv.Items[i].TotalValue)
	}
	return total
}

// InvoiceItem references (never owns) a contract item and records the
// quantity drawn by this invoice. TotalValue is derived from the contract
// item's unit price at settlement time.
type InvoiceItem struct {
	BaseModel
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index;column:invoice_id"`
	ContractItemID uuid.UUID       `gorm:"type:uuid;not null;index;column:contract_item_id"`
	QuantityUsed   decimal.Decimal `gorm:"type:decimal(12,3);not null;column:quantity_used"`
	TotalValue     decimal.Decimal `gorm:"type:decimal(15,2);not null;column:total_value"`
}

// Payment records the settlement of a paid invoice against a bank account.
type Payment struct {
	BaseModel
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex;column:invoice_id"`
	Date          time.Time       `gorm:"type:date;not null"`
	BankAccountID uuid.UUID       `gorm:"type:uuid;not null;index;column:bank_account_id"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(15,2);not null;column:amount_paid"`
}

// BankAccount is a municipal account used to pay invoices.
type BankAccount struct {
	BaseModel
	Bank        string `gorm:"type:varchar(200);not null"`
	Agency      string `gorm:"type:varchar(50);not null"`
	Account     string `gorm:"type:varchar(50);not null"`
	Description string `gorm:"type:varchar(500)"`
	Secretariat string `gorm:"type:varchar(200)"`
}

// ServiceOrderStatus represents the lifecycle of a service order
type ServiceOrderStatus string

const (
	ServiceOrderOpen      ServiceOrderStatus = "open"
	ServiceOrderCompleted ServiceOrderStatus = "completed"
	ServiceOrderCancelled ServiceOrderStatus = "cancelled"
)

// IsValid checks if the ServiceOrderStatus is a valid enum value
func (s ServiceOrderStatus) IsValid() bool {
	switch s {
	case ServiceOrderOpen, ServiceOrderCompleted, ServiceOrderCancelled:
		return true
	}
	return false
}

// ServiceOrder authorizes a supplier to deliver against a contract. It
// snapshots contract item prices for printing but never moves balances.
type ServiceOrder struct {
	BaseModel
	Number      string             `gorm:"type:varchar(50);not null;index"`
	ContractID  uuid.UUID          `gorm:"type:uuid;not null;index;column:contract_id"`
	Contract    *Contract          `gorm:"foreignKey:ContractID"`
	IssueDate   time.Time          `gorm:"type:date;not null;column:issue_date"`
	Description string             `gorm:"type:text;not null"`
	Status      ServiceOrderStatus `gorm:"type:varchar(20);not null;default:'open'"`
	Items       []ServiceOrderItem `gorm:"foreignKey:ServiceOrderID;constraint:OnDelete:CASCADE"`
}

// ServiceOrderItem snapshots a contract item's price at issue time.
type ServiceOrderItem struct {
	BaseModel
	ServiceOrderID uuid.UUID       `gorm:"type:uuid;not null;index;column:service_order_id"`
	ContractItemID uuid.UUID       `gorm:"type:uuid;not null;index;column:contract_item_id"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(15,2);not null;column:unit_price"`
	Total          decimal.Decimal `gorm:"type:decimal(15,2);not null"`
}

// NumberSequence backs sequential document numbering per tenant and year.
type NumberSequence struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_seq_tenant_year;column:tenant_id"`
	Year      int       `gorm:"not null;uniqueIndex:idx_seq_tenant_year"`
	LastValue int       `gorm:"not null;default:0;column:last_value"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}
