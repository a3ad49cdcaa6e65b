package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rig-store/rig_ledger/internal/ledger"
)

// Job periodically audits the ledger and logs the report.
type Job struct {
	ledger  ledger.Ledger
	logger  *slog.Logger
	cron    *cron.Cron
	timeout time.Duration
}

// New builds a reconciliation job. Nothing runs until Start.
func New(ledgerBackend ledger.Ledger, logger *slog.Logger) *Job {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Job{
		ledger:  ledgerBackend,
		logger:  logger,
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		timeout: 30 * time.Second,
	}
}

// Start registers the audit on schedule and starts the scheduler.
func (j *Job) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, func() { j.Run(context.Background()) }); err != nil {
		return fmt.Errorf("schedule reconciliation %q: %w", schedule, err)
	}
	j.cron.Start()
	return nil
}

// Stop halts the scheduler; the returned context is done once a running
// audit finishes.
func (j *Job) Stop() context.Context {
	return j.cron.Stop()
}

// Run performs a single audit and reports whether the ledger balanced.
func (j *Job) Run(ctx context.Context) (ledger.AuditReport, bool) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	report, err := j.ledger.Audit(ctx)
	if err != nil {
		j.logger.Error("ledger audit failed", slog.Any("error", err))
		return ledger.AuditReport{}, false
	}

	attrs := []any{
		slog.Int("accounts", report.Accounts),
		slog.Int("transactions", report.Transactions),
		slog.Int64("total_balance", report.TotalBalance),
		slog.Int64("total_deposited", report.TotalDeposited),
		slog.Int("negative_balances", report.NegativeBalances),
		slog.Int("pending_deposits", report.PendingDeposits),
	}
	if !report.Balanced() {
		j.logger.Error("ledger out of balance", attrs...)
		return report, false
	}
	j.logger.Info("ledger reconciled", attrs...)
	return report, true
}
