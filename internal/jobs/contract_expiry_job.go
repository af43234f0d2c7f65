package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ContractExpiryJobName is the name of the daily contract expiry report job
const ContractExpiryJobName = "contract_expiry"

// ExpiryReporter reports contracts approaching their end date.
type ExpiryReporter interface {
	ReportExpiringContracts(ctx context.Context, within time.Duration) (expiring int, err error)
}

// ContractExpiryJob logs contracts that end within the configured window so
// operators can renegotiate or close them before the end date passes.
type ContractExpiryJob struct {
	reporter ExpiryReporter
	logger   *zap.Logger
	window   time.Duration
	timeout  time.Duration
}

// NewContractExpiryJob creates a new contract expiry report job.
func NewContractExpiryJob(reporter ExpiryReporter, logger *zap.Logger, window time.Duration) *ContractExpiryJob {
	return &ContractExpiryJob{
		reporter: reporter,
		logger:   logger,
		window:   window,
		timeout:  DefaultAuditTimeout,
	}
}

// Run executes the expiry report. Called by the scheduler.
func (j *ContractExpiryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	expiring, err := j.reporter.ReportExpiringContracts(ctx, j.window)
	if err != nil {
		j.logger.Error("contract expiry report failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("contract expiry report completed",
		zap.Int("expiring", expiring),
		zap.Duration("window", j.window),
		zap.Duration("duration", time.Since(start)))
}

// RegisterContractExpiryJob registers the expiry report with the scheduler.
// It runs daily after the ledger audit.
func RegisterContractExpiryJob(scheduler *Scheduler, reporter ExpiryReporter, logger *zap.Logger, expiryDays int) error {
	job := NewContractExpiryJob(reporter, logger, time.Duration(expiryDays)*24*time.Hour)
	return scheduler.AddJob(ContractExpiryJobName, "0 4 * * *", job.Run)
}
