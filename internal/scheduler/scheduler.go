package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/kgbox/expiry-notifier/internal/application/job"
	"github.com/kgbox/expiry-notifier/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Start wires the daily expiry scan onto a cron schedule evaluated in the
// configured time zone and returns the running scheduler. The caller owns
// the lifecycle and stops it on shutdown.
func Start(ctx context.Context, cfg *config.Config, j *job.Job, log *zap.Logger) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.ScanTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.ScanTimezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.ScanSchedule, func() {
		j.RunScheduled(ctx)
	}); err != nil {
		return nil, fmt.Errorf("register scan schedule %q: %w", cfg.ScanSchedule, err)
	}

	c.Start()
	log.Info("expiry scan scheduled",
		zap.String("spec", cfg.ScanSchedule),
		zap.String("timezone", cfg.ScanTimezone))
	return c, nil
}
