package scheduler

import (
	"context"
	"fmt"
	"time"

	"lead_engine_backend/platform/config"
	"lead_engine_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

// InProcess runs the recurring jobs inside the API process. Each job runs
// to completion and is skipped, not queued, while its previous run is busy.
type InProcess struct {
	cron *cron.Cron
	log  *logger.Logger
}

func NewInProcess(cfg config.SchedulerConfig, loc *time.Location, jobs *Jobs, log *logger.Logger) (*InProcess, error) {
	if loc == nil {
		loc = time.UTC
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{log: log}), cron.SkipIfStillRunning(cronLogger{log: log})),
	)

	// Jobs are not cancelled on shutdown; they finish the current cycle.
	runCtx := context.Background()

	if _, err := c.AddFunc(everySpec(cfg.GetFollowUpInterval()), func() {
		_ = jobs.RunFollowUpScan(runCtx)
	}); err != nil {
		return nil, fmt.Errorf("schedule follow-up scan: %w", err)
	}
	if _, err := c.AddFunc(cfg.GetSummaryCron(), func() {
		_ = jobs.RunDailySummary(runCtx)
	}); err != nil {
		return nil, fmt.Errorf("schedule daily summary: %w", err)
	}

	return &InProcess{cron: c, log: log}, nil
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// running jobs to finish.
func (p *InProcess) Run(ctx context.Context) error {
	p.cron.Start()
	p.log.Info("in-process scheduler started", "entries", len(p.cron.Entries()))

	<-ctx.Done()
	<-p.cron.Stop().Done()
	return nil
}

type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	l.log.Error("cron: "+msg, args...)
}
