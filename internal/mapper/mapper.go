package mapper

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gestao-publica/procurement-api/internal/domain"
)

const timeISO = "2006-01-02T15:04:05Z"
const dateISO = "2006-01-02"

// ToSupplierDTO converts Supplier to SupplierDTO
func ToSupplierDTO(supplier *domain.Supplier) domain.SupplierDTO {
	return domain.SupplierDTO{
		ID:        supplier.ID,
		Name:      supplier.Name,
		CNPJ:      supplier.CNPJ,
		Phone:     supplier.Phone,
		Email:     supplier.Email,
		CreatedAt: supplier.CreatedAt.Format(timeISO),
		UpdatedAt: supplier.UpdatedAt.Format(timeISO),
	}
}

// ToAtaDTO converts Ata to AtaDTO, including items and distributions
func ToAtaDTO(ata *domain.Ata, supplierName string) domain.AtaDTO {
	dto := domain.AtaDTO{
		ID:                 ata.ID,
		ProcessNumber:      ata.ProcessNumber,
		Modality:           ata.Modality,
		Object:             ata.Object,
		SupplierID:         ata.SupplierID,
		SupplierName:       supplierName,
		Year:               ata.Year,
		TotalValue:         ata.TotalValue,
		ReservedPercentage: ata.ReservedPercentage,
		ReservedValue:      ata.ReservedValue(),
		Items:              make([]domain.AtaItemDTO, 0, len(ata.Items)),
		Distributions:      make([]domain.AtaDistributionDTO, 0, len(ata.Distributions)),
		CreatedAt:          ata.CreatedAt.Format(timeISO),
		UpdatedAt:          ata.UpdatedAt.Format(timeISO),
	}
	for i := range ata.Items {
		dto.Items = append(dto.Items, ToAtaItemDTO(&ata.Items[i]))
	}
	for i := range ata.Distributions {
		dto.Distributions = append(dto.Distributions, ToAtaDistributionDTO(&ata.Distributions[i]))
	}
	return dto
}

// ToAtaItemDTO converts AtaItem to AtaItemDTO
func ToAtaItemDTO(item *domain.AtaItem) domain.AtaItemDTO {
	return domain.AtaItemDTO{
		ID:          item.ID,
		Lote:        item.Lote,
		ItemNumber:  item.ItemNumber,
		Description: item.Description,
		Brand:       item.Brand,
		Unit:        item.Unit,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		TotalPrice:  item.TotalPrice,
	}
}

// ToAtaDistributionDTO converts AtaDistribution to AtaDistributionDTO
func ToAtaDistributionDTO(dist *domain.AtaDistribution) domain.AtaDistributionDTO {
	return domain.AtaDistributionDTO{
		ID:              dist.ID,
		SecretariatName: dist.SecretariatName,
		Percentage:      dist.Percentage,
		Value:           dist.Value,
	}
}

// ToAtaBudgetDTO builds the sibling-adjusted budget view of one allocation.
func ToAtaBudgetDTO(dist *domain.AtaDistribution, used decimal.Decimal) domain.AtaBudgetDTO {
	return domain.AtaBudgetDTO{
		AtaID:       dist.AtaID,
		Secretariat: dist.SecretariatName,
		Allocated:   dist.Value,
		Used:        used,
		Available:   dist.Value.Sub(used),
	}
}

// ToContractDTO converts Contract to ContractDTO, including items
func ToContractDTO(contract *domain.Contract, supplierName string) domain.ContractDTO {
	dto := domain.ContractDTO{
		ID:              contract.ID,
		Number:          contract.Number,
		SupplierID:      contract.SupplierID,
		SupplierName:    supplierName,
		BiddingModality: contract.BiddingModality,
		StartDate:       contract.StartDate.Format(dateISO),
		EndDate:         contract.EndDate.Format(dateISO),
		GlobalValue:     contract.GlobalValue,
		Origin:          contract.Origin(),
		AtaID:           contract.AtaID,
		Secretariat:     contract.Secretariat,
		Items:           make([]domain.ContractItemDTO, 0, len(contract.Items)),
		CreatedAt:       contract.CreatedAt.Format(timeISO),
		UpdatedAt:       contract.UpdatedAt.Format(timeISO),
	}
	for i := range contract.Items {
		dto.Items = append(dto.Items, ToContractItemDTO(&contract.Items[i]))
	}
	return dto
}

// ToContractItemDTO converts ContractItem to ContractItemDTO
func ToContractItemDTO(item *domain.ContractItem) domain.ContractItemDTO {
	return domain.ContractItemDTO{
		ID:             item.ID,
		Description:    item.Description,
		Unit:           item.Unit,
		OriginalQty:    item.OriginalQty,
		UnitPrice:      item.UnitPrice,
		CurrentBalance: item.CurrentBalance,
		State:          item.State(),
	}
}

// ToInvoiceDTO converts Invoice to InvoiceDTO. The contract's items supply
// denormalized descriptions and the per-item editable ceiling.
func ToInvoiceDTO(invoice *domain.Invoice, contract *domain.Contract) domain.InvoiceDTO {
	dto := domain.InvoiceDTO{
		ID:         invoice.ID,
		ContractID: invoice.ContractID,
		Number:     invoice.Number,
		IssueDate:  invoice.IssueDate.Format(dateISO),
		IsPaid:     invoice.IsPaid,
		TotalValue: invoice.TotalValue(),
		Items:      make([]domain.InvoiceItemDTO, 0, len(invoice.Items)),
		CreatedAt:  invoice.CreatedAt.Format(timeISO),
		UpdatedAt:  invoice.UpdatedAt.Format(timeISO),
	}
	for i := range invoice.Items {
		item := &invoice.Items[i]
		itemDTO := domain.InvoiceItemDTO{
			ID:             item.ID,
			ContractItemID: item.ContractItemID,
			QuantityUsed:   item.QuantityUsed,
			TotalValue:     item.TotalValue,
			MaxQuantity:    item.QuantityUsed,
		}
		if contract != nil {
			if ci := contract.FindItem(item.ContractItemID); ci != nil {
				itemDTO.Description = ci.Description
				itemDTO.Unit = ci.Unit
				itemDTO.MaxQuantity = ci.CurrentBalance.Add(item.QuantityUsed)
			}
		}
		dto.Items = append(dto.Items, itemDTO)
	}
	if invoice.Payment != nil {
		payment := ToPaymentDTO(invoice.Payment)
		dto.Payment = &payment
	}
	return dto
}

// ToPaymentDTO converts Payment to PaymentDTO
func ToPaymentDTO(payment *domain.Payment) domain.PaymentDTO {
	return domain.PaymentDTO{
		ID:            payment.ID,
		Date:          payment.Date.Format(dateISO),
		BankAccountID: payment.BankAccountID,
		AmountPaid:    payment.AmountPaid,
	}
}

// ToBankAccountDTO converts BankAccount to BankAccountDTO
func ToBankAccountDTO(account *domain.BankAccount) domain.BankAccountDTO {
	return domain.BankAccountDTO{
		ID:          account.ID,
		Bank:        account.Bank,
		Agency:      account.Agency,
		Account:     account.Account,
		Description: account.Description,
		Secretariat: account.Secretariat,
		CreatedAt:   account.CreatedAt.Format(timeISO),
		UpdatedAt:   account.UpdatedAt.Format(timeISO),
	}
}

// ToServiceOrderDTO converts ServiceOrder to ServiceOrderDTO
func ToServiceOrderDTO(order *domain.ServiceOrder, contract *domain.Contract) domain.ServiceOrderDTO {
	dto := domain.ServiceOrderDTO{
		ID:          order.ID,
		Number:      order.Number,
		ContractID:  order.ContractID,
		IssueDate:   order.IssueDate.Format(dateISO),
		Description: order.Description,
		Status:      order.Status,
		TotalValue:  decimal.Zero,
		Items:       make([]domain.ServiceOrderItemDTO, 0, len(order.Items)),
		CreatedAt:   order.CreatedAt.Format(timeISO),
		UpdatedAt:   order.UpdatedAt.Format(timeISO),
	}
	for i := range order.Items {
		item := &order.Items[i]
		itemDTO := domain.ServiceOrderItemDTO{
			ID:             item.ID,
			ContractItemID: item.ContractItemID,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			Total:          item.Total,
		}
		if contract != nil {
			if ci := contract.FindItem(item.ContractItemID); ci != nil {
				itemDTO.Description = ci.Description
				itemDTO.Unit = ci.Unit
			}
		}
		dto.TotalValue = dto.TotalValue.Add(item.Total)
		dto.Items = append(dto.Items, itemDTO)
	}
	return dto
}

// FormatError wraps an error with entity and operation context
func FormatError(entity, operation string, err error) error {
	return fmt.Errorf("failed to %s %s: %w", operation, entity, err)
}
