package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditService cross-checks the quantity and budget ledgers against the
// invoice and contract rows they are derived from. It only reports drift,
// it never repairs it.
type AuditService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAuditService(db *gorm.DB, logger *zap.Logger) *AuditService {
	return &AuditService{db: db, logger: logger}
}

type balanceAuditRow struct {
	ID             uuid.UUID
	ContractID     uuid.UUID
	TenantID       string
	OriginalQty    decimal.Decimal
	CurrentBalance decimal.Decimal
	Invoiced       decimal.Decimal
}

type budgetAuditRow struct {
	DistributionID  uuid.UUID
	AtaID           uuid.UUID
	TenantID        string
	SecretariatName string
	Value           decimal.Decimal
	Committed       decimal.Decimal
}

// AuditBalances verifies every contract item balance against its bounds and
// against the sum of invoice consumption. Returns the number of rows checked
// and the number of anomalies found.
func (s *AuditService) AuditBalances(ctx context.Context) (checked int, anomalies int, err error) {
	var rows []balanceAuditRow
	err = s.db.WithContext(ctx).
		Table("contract_items AS ci").
		Select("ci.id, ci.contract_id, ci.tenant_id, ci.original_qty, ci.current_balance, COALESCE(SUM(ii.quantity_used), 0) AS invoiced").
		Joins("LEFT JOIN invoice_items ii ON ii.contract_item_id = ci.id").
		Group("ci.id, ci.contract_id, ci.tenant_id, ci.original_qty, ci.current_balance").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load contract item balances: %w", err)
	}

	for _, row := range rows {
		checked++

		if row.CurrentBalance.IsNegative() || row.CurrentBalance.GreaterThan(row.OriginalQty) {
			anomalies++
			s.logger.Error("contract item balance out of bounds",
				zap.String("contract_item_id", row.ID.String()),
				zap.String("contract_id", row.ContractID.String()),
				zap.String("tenant_id", row.TenantID),
				zap.String("original_qty", row.OriginalQty.String()),
				zap.String("current_balance", row.CurrentBalance.String()))
			continue
		}

		expected := row.OriginalQty.Sub(row.Invoiced)
		if !row.CurrentBalance.Equal(expected) {
			anomalies++
			s.logger.Error("contract item balance does not match invoiced quantity",
				zap.String("contract_item_id", row.ID.String()),
				zap.String("contract_id", row.ContractID.String()),
				zap.String("tenant_id", row.TenantID),
				zap.String("current_balance", row.CurrentBalance.String()),
				zap.String("expected_balance", expected.String()))
		}
	}

	return checked, anomalies, nil
}

// AuditAllocations verifies that no ata has distributions summing past 100%
// and that no distribution is committed past its allocated value.
func (s *AuditService) AuditAllocations(ctx context.Context) (checked int, anomalies int, err error) {
	var percentages []struct {
		AtaID    uuid.UUID
		TenantID string
		Total    decimal.Decimal
	}
	err = s.db.WithContext(ctx).
		Table("ata_distributions").
		Select("ata_id, tenant_id, SUM(percentage) AS total").
		Group("ata_id, tenant_id").
		Scan(&percentages).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load distribution percentages: %w", err)
	}

	hundred := decimal.NewFromInt(100)
	for _, p := range percentages {
		checked++
		if p.Total.GreaterThan(hundred) {
			anomalies++
			s.logger.Error("ata distributions exceed 100 percent",
				zap.String("ata_id", p.AtaID.String()),
				zap.String("tenant_id", p.TenantID),
				zap.String("total_percentage", p.Total.String()))
		}
	}

	var budgets []budgetAuditRow
	err = s.db.WithContext(ctx).
		Table("ata_distributions AS d").
		Select("d.id AS distribution_id, d.ata_id, d.tenant_id, d.secretariat_name, d.value, COALESCE(SUM(c.global_value), 0) AS committed").
		Joins("LEFT JOIN contracts c ON c.ata_id = d.ata_id AND c.secretariat = d.secretariat_name AND c.tenant_id = d.tenant_id").
		Group("d.id, d.ata_id, d.tenant_id, d.secretariat_name, d.value").
		Scan(&budgets).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load distribution budgets: %w", err)
	}

	for _, b := range budgets {
		checked++
		if b.Committed.GreaterThan(b.Value) {
			anomalies++
			s.logger.Error("distribution committed beyond its allocation",
				zap.String("distribution_id", b.DistributionID.String()),
				zap.String("ata_id", b.AtaID.String()),
				zap.String("tenant_id", b.TenantID),
				zap.String("secretariat", b.SecretariatName),
				zap.String("allocated", b.Value.String()),
				zap.String("committed", b.Committed.String()))
		}
	}

	return checked, anomalies, nil
}

// ReportExpiringContracts logs, per tenant, how many contracts end within
// the given window. Runs across all tenants.
func (s *AuditService) ReportExpiringContracts(ctx context.Context, within time.Duration) (expiring int, err error) {
	var rows []struct {
		TenantID string
		Count    int64
	}
	now := time.Now().UTC()
	err = s.db.WithContext(ctx).
		Table("contracts").
		Select("tenant_id, COUNT(*) AS count").
		Where("end_date >= ? AND end_date <= ?", now, now.Add(within)).
		Group("tenant_id").
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load expiring contracts: %w", err)
	}

	for _, row := range rows {
		expiring += int(row.Count)
		s.logger.Info("contracts approaching end date",
			zap.String("tenant_id", row.TenantID),
			zap.Int64("count", row.Count),
			zap.Duration("window", within))
	}

	return expiring, nil
}
