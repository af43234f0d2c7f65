package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LedgerAuditJobName is the name of the nightly ledger audit job
const LedgerAuditJobName = "ledger_audit"

// DefaultAuditTimeout bounds a single audit run
const DefaultAuditTimeout = 10 * time.Minute

// LedgerAuditor defines the audit operations the job needs. The interface
// keeps the job from importing the service package directly.
type LedgerAuditor interface {
	// AuditBalances checks every contract item balance against its bounds
	// and the invoiced quantities. Returns rows checked and anomalies found.
	AuditBalances(ctx context.Context) (checked int, anomalies int, err error)

	// AuditAllocations checks distribution percentages and committed budgets.
	AuditAllocations(ctx context.Context) (checked int, anomalies int, err error)
}

// LedgerAuditJob runs the nightly consistency check over the quantity and
// budget ledgers.
type LedgerAuditJob struct {
	auditor LedgerAuditor
	logger  *zap.Logger
	timeout time.Duration
}

// NewLedgerAuditJob creates a new ledger audit job.
func NewLedgerAuditJob(auditor LedgerAuditor, logger *zap.Logger, timeout time.Duration) *LedgerAuditJob {
	return &LedgerAuditJob{
		auditor: auditor,
		logger:  logger,
		timeout: timeout,
	}
}

// Run executes the ledger audit. Called by the scheduler.
func (j *LedgerAuditJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	j.logger.Info("starting ledger audit job")

	balancesChecked, balanceAnomalies, err := j.auditor.AuditBalances(ctx)
	if err != nil {
		j.logger.Error("ledger balance audit failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		// Continue with the allocation audit even if balances failed
	}

	allocationsChecked, allocationAnomalies, err := j.auditor.AuditAllocations(ctx)
	if err != nil {
		j.logger.Error("ledger allocation audit failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
	}

	j.logger.Info("ledger audit job completed",
		zap.Int("balances_checked", balancesChecked),
		zap.Int("balance_anomalies", balanceAnomalies),
		zap.Int("allocations_checked", allocationsChecked),
		zap.Int("allocation_anomalies", allocationAnomalies),
		zap.Duration("duration", time.Since(start)))
}

// RegisterLedgerAuditJob registers the ledger audit job with the scheduler.
func RegisterLedgerAuditJob(scheduler *Scheduler, auditor LedgerAuditor, logger *zap.Logger, cronExpr string) error {
	job := NewLedgerAuditJob(auditor, logger, DefaultAuditTimeout)
	return scheduler.AddJob(LedgerAuditJobName, cronExpr, job.Run)
}
