package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"squashd/pkg/archive"
	"squashd/pkg/config"
	"squashd/pkg/logger"
)

// Start launches the archive pruning scheduler when enabled and returns a
// cancel func. Records older than the configured period are removed on
// each tick.
func Start(ctx context.Context, cfg config.RetentionConfig, log *archive.Log) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	period, err := time.ParseDuration(cfg.Period)
	if err != nil || period <= 0 {
		return nil, fmt.Errorf("invalid retention period: %q", cfg.Period)
	}

	// default daily @02:00
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", period.String())
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, log, cronExpr, period)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until
// then, pruning once per tick. Errors are logged; the scheduler keeps
// going until the context is cancelled.
func runScheduler(ctx context.Context, log *archive.Log, cronExpr string, period time.Duration) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(log, period); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce prunes archive records older than period and reports the count.
func RunOnce(log *archive.Log, period time.Duration) error {
	cutoff := time.Now().UTC().Add(-period).UnixNano()
	n, err := log.PruneBefore(cutoff)
	if err != nil {
		return err
	}
	logger.Info("retention_run_complete", "pruned", n)
	return nil
}
